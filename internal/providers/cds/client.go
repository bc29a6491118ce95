package cds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// API Docs: https://cds.climate.copernicus.eu/api-how-to
// Retrievals are asynchronous: submit a request, poll the task until it
// completes, then fetch the result from the returned location.
const (
	baseCDSURL = "https://cds.climate.copernicus.eu/api/v2"

	// WindDataset holds ERA5 wind fields on pressure levels.
	WindDataset = "reanalysis-era5-pressure-levels"
)

type Client struct {
	httpClient   *http.Client
	baseURL      string
	uid          string
	key          string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewClient authenticates against the CDS with an account UID and API key.
func NewClient(uid, key string, logger *slog.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
		baseURL:      baseCDSURL,
		uid:          uid,
		key:          key,
		pollInterval: 2 * time.Second,
		logger:       logger.With("component", "cds-client"),
	}
}

// Retrieve submits a dataset request, waits for the store to prepare it
// and writes the result to path.
func (c *Client) Retrieve(ctx context.Context, dataset string, request ERA5Request, path string) error {
	task, err := c.submit(ctx, dataset, request)
	if err != nil {
		return err
	}

	for task.State != stateCompleted {
		switch task.State {
		case stateFailed:
			c.logger.Error("retrieval failed",
				"dataset", dataset,
				"message", task.Error.Message,
				"reason", task.Error.Reason,
			)
			return fmt.Errorf("retrieval failed: %s: %s", task.Error.Message, task.Error.Reason)
		case stateQueued, stateRunning:
			c.logger.Debug("waiting for retrieval",
				"dataset", dataset,
				"request_id", task.RequestID,
				"state", task.State,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		task, err = c.poll(ctx, task.RequestID)
		if err != nil {
			return err
		}
	}

	return c.fetchResult(ctx, task.Location, path)
}

func (c *Client) submit(ctx context.Context, dataset string, request ERA5Request) (*taskState, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	u := fmt.Sprintf("%s/resources/%s", c.baseURL, dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.uid, c.key)

	c.logger.Debug("submitting retrieval", "dataset", dataset)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("retrieval submission failed", "dataset", dataset, "error", err)
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("retrieval submission returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var task taskState
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &task, nil
}

func (c *Client) poll(ctx context.Context, requestID string) (*taskState, error) {
	u := fmt.Sprintf("%s/tasks/%s", c.baseURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.uid, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var task taskState
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if task.RequestID == "" {
		task.RequestID = requestID
	}
	return &task, nil
}

func (c *Client) fetchResult(ctx context.Context, location, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("result download failed", "location", location, "error", err)
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}

	c.logger.Info("result downloaded", "path", path)
	return nil
}
