package temis

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Data portal: https://www.temis.nl/airpollution/no2col/no2month_tropomi.php
// Monthly-mean grids are gzipped ASCII files named by year and month.
const (
	baseTemisURL = "https://www.temis.nl/airpollution/no2col/data/tropomi"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	dataDir    string
	logger     *slog.Logger
}

// NewClient downloads monthly grids on demand, keeping copies under
// dataDir so each month is fetched at most once.
func NewClient(dataDir string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseTemisURL,
		dataDir:    dataDir,
		logger:     logger.With("component", "temis-client"),
	}
}

// MonthlyMeans opens the grid file for the month containing the given
// date, downloading it first when it is not cached yet.
func (c *Client) MonthlyMeans(ctx context.Context, month time.Time) (io.ReadCloser, error) {
	path := filepath.Join(c.dataDir, monthFileName(month))
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("using cached month file", "path", path)
		return os.Open(path)
	}

	if err := c.download(ctx, month, path); err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (c *Client) download(ctx context.Context, month time.Time, path string) error {
	u := fmt.Sprintf("%s/%s.gz", c.baseURL, monthFileName(month))

	c.logger.Info("downloading month file", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("month file download failed", "url", u, "error", err)
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("month file download returned error",
			"status_code", resp.StatusCode,
			"url", u,
		)
		return fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}

	// Write to a temp name first so a partial download never looks like
	// a cached file. The cache holds the decompressed grid.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	_, err = io.Copy(tmp, gz)
	if gerr := gz.Close(); err == nil {
		err = gerr
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	c.logger.Info("month file downloaded", "path", path)
	return nil
}

func monthFileName(month time.Time) string {
	return fmt.Sprintf("no2_%s.asc", month.Format("200601"))
}
