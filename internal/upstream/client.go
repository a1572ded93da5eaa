// Package upstream implements the gateway's outbound boundaries: the content
// API that owns subjects, chapters and question sets, and the grading
// authority that decides answer correctness. Both speak JSON over HTTP and
// both receive the caller's bearer token unchanged.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/quizpath/session-gateway/internal/config"
	"github.com/rs/zerolog"
)

// Boundary errors. ErrUnavailable covers transport failures and upstream 5xx
// responses (recoverable); ErrMalformedPayload covers responses the gateway
// cannot interpret (unrecoverable for the operation that hit it).
var (
	ErrUnavailable      = errors.New("upstream unavailable")
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// Client is a thin JSON-over-HTTP client for the upstream services.
type Client struct {
	contentURL string
	gradingURL string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client from configuration. The HTTP client timeout is
// the outer bound; individual calls also honor their context.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		contentURL: cfg.ContentAPIURL,
		gradingURL: cfg.GradingAPIURL,
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		log:        log.With().Str("component", "upstream_client").Logger(),
	}
}

// getJSON performs a GET against url and decodes the body into dst.
func (c *Client) getJSON(ctx context.Context, url, token string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, dst)
}

// postJSON performs a POST with a JSON body and decodes the response into dst.
func (c *Client) postJSON(ctx context.Context, url, token string, body, dst interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, dst)
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) decodeResponse(resp *http.Response, dst interface{}) error {
	if resp.StatusCode >= http.StatusInternalServerError {
		c.log.Warn().Int("status", resp.StatusCode).Str("url", resp.Request.URL.Path).Msg("Upstream server error")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// flexibleID accepts a JSON string or number and normalizes it to a string.
// Upstream question IDs are opaque; some deployments serve UUIDs, others
// integer keys.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
