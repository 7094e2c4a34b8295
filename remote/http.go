package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/windlass-io/windlass/iox"
	"github.com/windlass-io/windlass/types"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBodyBytes bounds how much of an error response body is retained
// for diagnostics.
const maxErrorBodyBytes = 4096

// Config configures the HTTP facade client.
type Config struct {
	// BaseURL is the service root (required), e.g. https://api.example.com/v1.
	BaseURL string
	// Token is the bearer token for this principal (required).
	// The client is constructed per principal and never mutated: credentials
	// travel with the client instance, not through shared global state.
	Token string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Client is the production HTTP implementation of Facade.
// Immutable after construction; safe for concurrent use.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates an HTTP facade client from the given config.
// Returns an error if BaseURL or Token is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote client requires a base URL")
	}
	if cfg.Token == "" {
		return nil, errors.New("remote client requires a bearer token")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// InitiateUpload implements Facade.
func (c *Client) InitiateUpload(ctx context.Context, req InitiateUploadRequest) (InitiateUploadResponse, error) {
	var resp InitiateUploadResponse
	err := c.postJSON(ctx, "/uploads/initiate", req, &resp)
	if err != nil {
		return InitiateUploadResponse{}, WrapCallError("initiate_upload", err)
	}
	return resp, nil
}

// UploadChunk implements Facade. The chunk travels as a raw octet-stream
// body; index and session ride in the path so the remote can enforce
// ordering before reading the payload.
func (c *Client) UploadChunk(ctx context.Context, sessionID string, index int, data []byte) error {
	path := fmt.Sprintf("/uploads/%s/chunks/%d", url.PathEscape(sessionID), index)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return WrapCallError("upload_chunk", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(httpReq)

	var ack struct {
		Accepted bool `json:"accepted"`
	}
	if err := c.do(httpReq, &ack); err != nil {
		return WrapCallError("upload_chunk", err)
	}
	if !ack.Accepted {
		return WrapCallError("upload_chunk", fmt.Errorf("chunk %d not accepted", index))
	}
	return nil
}

// CompleteUpload implements Facade.
func (c *Client) CompleteUpload(ctx context.Context, sessionID string, totalChunks int) (types.ArtifactRef, error) {
	path := fmt.Sprintf("/uploads/%s/complete", url.PathEscape(sessionID))
	body := map[string]any{"total_chunks": totalChunks}

	var resp struct {
		ArtifactRef types.ArtifactRef `json:"artifact_ref"`
	}
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return "", WrapCallError("complete_upload", err)
	}
	return resp.ArtifactRef, nil
}

// PaymentStatus implements Facade.
func (c *Client) PaymentStatus(ctx context.Context, checkoutSessionID string) (types.PaymentStatus, error) {
	path := fmt.Sprintf("/payments/%s/status", url.PathEscape(checkoutSessionID))

	var resp struct {
		Status types.PaymentStatus `json:"status"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", WrapCallError("payment_status", err)
	}
	return resp.Status, nil
}

// AssessmentResult implements Facade.
func (c *Client) AssessmentResult(ctx context.Context, unitID string) (types.AssessmentResult, error) {
	path := fmt.Sprintf("/assessments/%s/result", url.PathEscape(unitID))

	var resp types.AssessmentResult
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return types.AssessmentResult{}, WrapCallError("assessment_result", err)
	}
	return resp, nil
}

// DashboardNotify implements Facade.
func (c *Client) DashboardNotify(ctx context.Context, userID string, payload map[string]any) error {
	path := fmt.Sprintf("/dashboard/%s/notify", url.PathEscape(userID))
	if err := c.postJSON(ctx, path, payload, nil); err != nil {
		return WrapCallError("dashboard_notify", err)
	}
	return nil
}

// authorize attaches this principal's bearer token to the request.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
}

// postJSON performs a JSON POST and decodes the response into out (if non-nil).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	return c.do(req, out)
}

// do executes the request, maps non-2xx responses to StatusError, and
// decodes a 2xx body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Verify Client implements Facade.
var _ Facade = (*Client)(nil)
