package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/varbox/internal/adapters/framecodec"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/model"
)

const ndjsonType = "application/x-ndjson"

// AcceptedHeader carries how many frames of a batch were queued before it failed.
const AcceptedHeader = "X-Frames-Accepted"

// DefaultMaxBodyBytes caps a frame request body.
const DefaultMaxBodyBytes int64 = 32 << 20

// BoutsHandler serves the live bout endpoints.
type BoutsHandler struct {
	deps    Dependencies
	maxBody int64
}

// NewBoutsHandler creates a new bouts handler. maxBody bounds frame request
// bodies; values below one use DefaultMaxBodyBytes.
func NewBoutsHandler(deps Dependencies, maxBody int64) *BoutsHandler {
	if maxBody < 1 {
		maxBody = DefaultMaxBodyBytes
	}
	return &BoutsHandler{deps: deps, maxBody: maxBody}
}

type createResponse struct {
	BoutID string `json:"bout_id"`
}

type framesResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Last     int    `json:"last_index,omitempty"`
}

// officialRequest is the body of knockdown and deduction calls. Count is
// used for knockdowns and Points for deductions; both default to one.
type officialRequest struct {
	Role   string `json:"role"`
	Count  int    `json:"count"`
	Points int    `json:"points"`
}

func (o officialRequest) validate() error {
	if _, ok := model.ParseRole(o.Role); !ok {
		return fmt.Errorf("%w: role must be RED or BLUE", ErrBadRequest)
	}
	if o.Count < 0 || o.Points < 0 {
		return fmt.Errorf("%w: negative amount", ErrBadRequest)
	}
	return nil
}

// HandleCreate handles POST /bouts. An empty body uses the default clock.
func (h *BoutsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var settings bout.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if settings.FPS < 0 || settings.RoundSeconds < 0 || settings.RestSeconds < 0 || settings.TotalRounds < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: negative setting", ErrBadRequest))
		return
	}
	id, err := h.deps.CreateBout(r.Context(), settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{BoutID: id})
}

// HandleFrames handles POST /bouts/{boutID}/frames. The body is one frame
// record, or many as JSON Lines when sent as application/x-ndjson. Every
// failed response carries AcceptedHeader with the number of frames queued.
func (h *BoutsHandler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	boutID := chi.URLParam(r, "boutID")
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	dec := framecodec.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	accepted, last := 0, 0
	fail := func(err error) {
		w.Header().Set(AcceptedHeader, strconv.Itoa(accepted))
		writeServiceError(w, err)
	}
	for {
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(err)
			return
		}
		if err := h.deps.SubmitFrame(r.Context(), boutID, frame); err != nil {
			fail(err)
			return
		}
		accepted++
		last = frame.Index
		if mediaType != ndjsonType {
			break
		}
	}
	if accepted == 0 {
		fail(fmt.Errorf("%w: no frame in body", ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusAccepted, framesResponse{Status: "accepted", Accepted: accepted, Last: last})
}

func (h *BoutsHandler) decodeOfficial(w http.ResponseWriter, r *http.Request) (officialRequest, bool) {
	var req officialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return req, false
	}
	return req, true
}

// HandleKnockdown handles POST /bouts/{boutID}/knockdowns.
func (h *BoutsHandler) HandleKnockdown(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOfficial(w, r)
	if !ok {
		return
	}
	if err := h.deps.AddKnockdown(r.Context(), chi.URLParam(r, "boutID"), model.Role(req.Role), max(req.Count, 1)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeduction handles POST /bouts/{boutID}/deductions.
func (h *BoutsHandler) HandleDeduction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOfficial(w, r)
	if !ok {
		return
	}
	if err := h.deps.AddDeduction(r.Context(), chi.URLParam(r, "boutID"), model.Role(req.Role), max(req.Points, 1)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleScorecard handles GET /bouts/{boutID}/scorecard.
func (h *BoutsHandler) HandleScorecard(w http.ResponseWriter, r *http.Request) {
	sc, err := h.deps.Scorecard(r.Context(), chi.URLParam(r, "boutID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// HandleFinish handles POST /bouts/{boutID}/finish.
func (h *BoutsHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	sc, err := h.deps.FinishBout(r.Context(), chi.URLParam(r, "boutID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
