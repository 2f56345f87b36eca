// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/varbox/internal/adapters/framecodec"
	"github.com/okian/varbox/internal/adapters/repository"
	service "github.com/okian/varbox/internal/app"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/dedupe"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateBout(ctx context.Context, settings bout.Settings) (string, error)
	SubmitFrame(ctx context.Context, boutID string, frame *model.Frame) error
	AddKnockdown(ctx context.Context, boutID string, role model.Role, count int) error
	AddDeduction(ctx context.Context, boutID string, role model.Role, points int) error
	Scorecard(ctx context.Context, boutID string) (model.Scorecard, error)
	FinishBout(ctx context.Context, boutID string) (model.Scorecard, error)

	// Read operations over saved scorecards.
	SavedScorecard(ctx context.Context, boutID string) (model.Scorecard, error)
	ListScorecards(ctx context.Context, limit int) ([]repository.Summary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	boutsHandler     *BoutsHandler
	scorecardHandler *ScorecardHandler
	logger           logger.Logger
	maxBody          int64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes bounds frame request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		scorecardHandler: NewScorecardHandler(deps),
		logger:           logger.Nop(),
		maxBody:          DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.boutsHandler = NewBoutsHandler(deps, s.maxBody)
	return s
}

// Routes builds the chi router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/bouts", func(r chi.Router) {
		r.Post("/", s.boutsHandler.HandleCreate)
		r.Route("/{boutID}", func(r chi.Router) {
			r.Post("/frames", s.boutsHandler.HandleFrames)
			r.Post("/knockdowns", s.boutsHandler.HandleKnockdown)
			r.Post("/deductions", s.boutsHandler.HandleDeduction)
			r.Get("/scorecard", s.boutsHandler.HandleScorecard)
			r.Post("/finish", s.boutsHandler.HandleFinish)
		})
	})

	r.Route("/scorecards", func(r chi.Router) {
		r.Get("/", s.scorecardHandler.HandleList)
		r.Get("/{boutID}", s.scorecardHandler.HandleGet)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, service.ErrBoutNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, dedupe.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, dedupe.ErrOutOfOrder):
		writeError(w, http.StatusConflict, "out_of_order", err)
	case errors.Is(err, service.ErrBoutFinished), errors.Is(err, bout.ErrNotInRound):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, bout.ErrUnknownRole),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, framecodec.ErrInvalidRecord),
		errors.Is(err, framecodec.ErrInvalidImage),
		errors.Is(err, framecodec.ErrInvalidKeypoint),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
