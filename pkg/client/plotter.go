// Package client provides an HTTP client for the plotviz service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned by Download for identifiers the service does not know.
var ErrNotFound = errors.New("plot not found")

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plotviz: status %d: %s", e.StatusCode, e.Message)
}

// PlotClient is safe for concurrent use by multiple goroutines.
type PlotClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPlotClient creates a client for the service at baseURL (scheme and
// host, e.g. "http://localhost:5006") with a 10 second timeout.
func NewPlotClient(baseURL string) *PlotClient {
	return NewPlotClientWithTimeout(baseURL, 10*time.Second)
}

// NewPlotClientWithTimeout creates a client with a custom timeout.
func NewPlotClientWithTimeout(baseURL string, timeout time.Duration) *PlotClient {
	return &PlotClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PlotData is the "data" field of a generate request. X is optional.
type PlotData struct {
	X []float64 `json:"x,omitempty"`
	Y []float64 `json:"y"`
}

// GenerateRequest mirrors the JSON body of POST /plots.
type GenerateRequest struct {
	Data   PlotData `json:"data"`
	Title  string   `json:"title,omitempty"`
	XLabel string   `json:"x_label,omitempty"`
	YLabel string   `json:"y_label,omitempty"`
}

// GenerateResponse is the JSON body of a 201 from POST /plots.
type GenerateResponse struct {
	PlotID     string    `json:"plot_id"`
	CreatedAt  time.Time `json:"created_at"`
	PointCount int       `json:"point_count"`
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	StoredPlots int    `json:"stored_plots"`
}

func (c *PlotClient) url(path string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	return u.JoinPath(path).String(), nil
}

// Generate renders and stores a plot, returning its identifier.
func (c *PlotClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	u, err := c.url("/plots")
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Download fetches the PNG stored under id.
func (c *PlotClient) Download(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("plot id cannot be empty")
	}
	u, err := c.url("/plots/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

// Health returns the service health report.
func (c *PlotClient) Health(ctx context.Context) (*HealthResponse, error) {
	u, err := c.url("/health")
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
