package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/varbox/internal/adapters/framecodec"
	"github.com/okian/varbox/internal/adapters/http/api"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/model"
)

// HTTPClient talks to the varbox HTTP API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// statusError reports an unexpected response.
type statusError struct {
	Status   int
	Body     string
	Accepted int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body []byte, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		accepted, _ := strconv.Atoi(resp.Header.Get(api.AcceptedHeader))
		return &statusError{Status: resp.StatusCode, Body: string(data), Accepted: accepted}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, http.StatusOK, nil)
}

// CreateBout opens a bout with the given clock.
func (c *HTTPClient) CreateBout(ctx context.Context, clock bout.Settings) (string, error) {
	body, err := json.Marshal(clock)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	var resp struct {
		BoutID string `json:"bout_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/bouts", "application/json", body, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.BoutID, nil
}

// SendFrames posts frames as one JSON Lines batch. On 429 the frames the
// service did not queue are resent after a linear backoff; the number of
// retries is returned.
func (c *HTTPClient) SendFrames(ctx context.Context, boutID string, frames []*model.Frame) (int, error) {
	path := "/bouts/" + boutID + "/frames"
	for attempt := 0; ; attempt++ {
		body, err := encodeFrames(frames)
		if err != nil {
			return attempt, err
		}
		err = c.do(ctx, http.MethodPost, path, ndjsonType, body, http.StatusAccepted, nil)
		var se *statusError
		if err == nil || !errors.As(err, &se) || se.Status != http.StatusTooManyRequests || attempt >= maxRetries {
			return attempt, err
		}
		frames = frames[min(se.Accepted, len(frames)):]
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
}

func encodeFrames(frames []*model.Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := framecodec.NewEncoder(&buf)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", f.Index, err)
		}
	}
	return buf.Bytes(), nil
}

// Finish ends the bout and returns its final scorecard. A 429 is retried.
func (c *HTTPClient) Finish(ctx context.Context, boutID string) (model.Scorecard, error) {
	for attempt := 0; ; attempt++ {
		var sc model.Scorecard
		err := c.do(ctx, http.MethodPost, "/bouts/"+boutID+"/finish", "", nil, http.StatusOK, &sc)
		var se *statusError
		if err == nil || !errors.As(err, &se) || se.Status != http.StatusTooManyRequests || attempt >= maxRetries {
			return sc, err
		}
		select {
		case <-ctx.Done():
			return sc, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
}

// Saved fetches a stored scorecard.
func (c *HTTPClient) Saved(ctx context.Context, boutID string) (model.Scorecard, error) {
	var sc model.Scorecard
	err := c.do(ctx, http.MethodGet, "/scorecards/"+boutID, "", nil, http.StatusOK, &sc)
	return sc, err
}
