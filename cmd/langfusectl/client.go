package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// Client talks to the langfuse HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ExportRun downloads a run's CSV and returns the suggested file name.
func (c *Client) ExportRun(ctx context.Context, projectID, datasetID, runID string) (string, []byte, error) {
	path := fmt.Sprintf("/v1/projects/%s/datasets/%s/runs/%s/export.csv",
		url.PathEscape(projectID), url.PathEscape(datasetID), url.PathEscape(runID))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read export: %w", err)
	}
	return fileNameFromDisposition(resp.Header.Get("Content-Disposition")), data, nil
}

// UploadRun asks the server to write a run's CSV to blob storage.
func (c *Client) UploadRun(ctx context.Context, projectID, datasetID, runID string) (*domain.ExportResponse, error) {
	path := fmt.Sprintf("/v1/projects/%s/datasets/%s/runs/%s/exports",
		url.PathEscape(projectID), url.PathEscape(datasetID), url.PathEscape(runID))
	var out domain.ExportResponse
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetObservation fetches one observation as raw JSON.
func (c *Client) GetObservation(ctx context.Context, projectID, observationID string, query url.Values) (json.RawMessage, error) {
	path := fmt.Sprintf("/v1/projects/%s/observations/%s", url.PathEscape(projectID), url.PathEscape(observationID))
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComposeURL resolves webhook form fields on the server.
func (c *Client) ComposeURL(ctx context.Context, req domain.URLFormRequest) (string, error) {
	var out domain.ComposeURLResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/remote-experiment/url/compose", req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ParseURL splits a webhook URL on the server.
func (c *Client) ParseURL(ctx context.Context, raw string) (*domain.URLPartsResponse, error) {
	var out domain.URLPartsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/remote-experiment/url/parse", domain.ParseURLRequest{URL: raw}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerExperiment calls the dataset's configured webhook.
func (c *Client) TriggerExperiment(ctx context.Context, projectID, datasetID, payload string) (*domain.TriggerRemoteExperimentResponse, error) {
	path := fmt.Sprintf("/v1/projects/%s/datasets/%s/remote-experiment/trigger", url.PathEscape(projectID), url.PathEscape(datasetID))
	var out domain.TriggerRemoteExperimentResponse
	if err := c.doJSON(ctx, http.MethodPost, path, domain.TriggerRemoteExperimentRequest{Payload: payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var e struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &e) != nil || e.Error == "" {
		e.Error = string(bytes.TrimSpace(data))
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
}

func fileNameFromDisposition(v string) string {
	_, params, err := mime.ParseMediaType(v)
	if err != nil || params["filename"] == "" {
		return "export.csv"
	}
	return filepath.Base(params["filename"])
}
