package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gogobubbles/leadops/internal/domain/model"
)

// Submit outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

var errNotSettled = errors.New("loadgen: not settled yet")

type client struct {
	http *http.Client
	base string
}

func newClient(base string, cfg *Config) *client {
	return &client{http: &http.Client{Timeout: cfg.Timeout}, base: base}
}

func (c *client) healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// submit posts one intervention and reports how the service took it.
func (c *client) submit(ctx context.Context, e model.JobInterventionEvent) string {
	body, err := json.Marshal(e)
	if err != nil {
		return outcomeFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/interventions", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		return outcomeDuplicate
	default:
		return outcomeFailed
	}
}

// settlement fetches the stored settlement for a job.
func (c *client) settlement(ctx context.Context, jobID string) (model.Settlement, error) {
	var st model.Settlement
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/takeovers/"+url.PathEscape(jobID), nil)
	if err != nil {
		return st, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return st, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return st, fmt.Errorf("decode settlement %s: %w", jobID, err)
		}
		return st, nil
	case http.StatusNotFound:
		return st, errNotSettled
	default:
		return st, fmt.Errorf("get settlement %s: status %d", jobID, resp.StatusCode)
	}
}
