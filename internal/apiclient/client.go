package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recipeclip/recipeclip-tracker/internal/auth"
	"github.com/recipeclip/recipeclip-tracker/internal/job"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 10 * time.Second
	// MaxResponseSize is the maximum response body size (1MB).
	MaxResponseSize = 1 * 1024 * 1024
)

var (
	ErrNon200Status   = errors.New("non-200 HTTP status")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrResponseTooBig = errors.New("response exceeds 1MB limit")
	ErrInvalidJSON    = errors.New("invalid JSON response")
)

// Client is an HTTP client for the RecipeClip extraction API.
// It authenticates every request through its token provider; callers that
// hand Client.FetchStatus to the polling layer therefore get the
// "already authenticated fetch function" the tracker expects.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens           auth.TokenProvider
	processingStatus string
}

// NewClient creates a new API client.
// processingStatus is the wire string the backend uses for the transitional
// job status; it is forwarded to snapshot parsing.
func NewClient(baseURL string, timeout time.Duration, tokens auth.TokenProvider, processingStatus string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		tokens:           tokens,
		processingStatus: processingStatus,
	}
}

// VersionResponse represents the response from the /version endpoint.
// Only the version field is captured; additional fields are ignored.
type VersionResponse struct {
	Version string `json:"version"`
}

// submitRequest is the body for a new extraction job.
type submitRequest struct {
	SourceURL string `json:"source_url"`
}

// submitResponse captures the job identifier assigned by the backend.
type submitResponse struct {
	JobID string `json:"job_id"`
}

// FetchStatus retrieves the current snapshot for a job.
func (c *Client) FetchStatus(ctx context.Context, jobID string) (*job.Snapshot, error) {
	url := fmt.Sprintf("%s/jobs/%s", c.BaseURL, jobID)
	body, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("status fetch failed: %w", err)
	}

	snapshot, err := job.ParseSnapshot(body, c.processingStatus)
	if err != nil {
		return nil, fmt.Errorf("status fetch failed: %w", err)
	}
	if snapshot.JobID == "" {
		snapshot.JobID = jobID
	}
	return snapshot, nil
}

// SubmitExtraction asks the backend to extract a recipe from sourceURL and
// returns the assigned job identifier. A client-generated idempotency key is
// sent so a retried submission does not enqueue the extraction twice.
func (c *Client) SubmitExtraction(ctx context.Context, sourceURL string) (string, error) {
	payload, err := json.Marshal(submitRequest{SourceURL: sourceURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode submit request: %w", err)
	}

	headers := map[string]string{
		"Idempotency-Key": uuid.NewString(),
	}
	url := c.BaseURL + "/jobs"
	body, err := c.doRequest(ctx, http.MethodPost, url, payload, headers)
	if err != nil {
		return "", fmt.Errorf("extraction submit failed: %w", err)
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("extraction submit failed: %w: %v", ErrInvalidJSON, err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("extraction submit failed: backend returned no job id")
	}
	return resp.JobID, nil
}

// CancelJob requests cancellation of a running extraction job.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/jobs/%s/cancel", c.BaseURL, jobID)
	if _, err := c.doRequest(ctx, http.MethodPost, url, nil, nil); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	return nil
}

// Version retrieves the backend version. The response is parsed leniently so
// the backend can add fields without breaking the client.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	url := c.BaseURL + "/version"
	body, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("version check failed: %w", err)
	}

	var resp VersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("version check failed: %w: %v", ErrInvalidJSON, err)
	}
	return &resp, nil
}

// doRequest performs an HTTP request with bearer auth and returns the body.
// A missing token is not fatal here; the request simply goes out without an
// Authorization header and the backend decides.
func (c *Client) doRequest(ctx context.Context, method, url string, payload []byte, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil && !errors.Is(err, auth.ErrNoToken) {
			return nil, fmt.Errorf("failed to resolve access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: got %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return nil, fmt.Errorf("%w: got %d: %s", ErrNon200Status, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, ErrResponseTooBig
	}

	return body, nil
}
