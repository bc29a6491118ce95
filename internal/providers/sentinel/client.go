package sentinel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// API Docs: https://scihub.copernicus.eu/userguide/OpenSearchAPI
// The Sentinel-5P pre-operations hub accepts the shared guest account.
const (
	baseHubURL    = "https://s5phub.copernicus.eu/dhus"
	guestUser     = "s5pguest"
	guestPassword = "s5pguest"

	platformName = "Sentinel-5 Precursor"
)

// ErrChecksumMismatch flags a download whose MD5 does not match the
// hub's catalogue entry.
var ErrChecksumMismatch = errors.New("checksum mismatch")

type Client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
	logger     *slog.Logger
}

// NewClient talks to the S5P hub with the guest account.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		baseURL:    baseHubURL,
		user:       guestUser,
		password:   guestPassword,
		logger:     logger.With("component", "sentinel-client"),
	}
}

// Query lists the products of one product type crossing the footprint
// (WKT) with a sensing start inside [begin, end).
func (c *Client) Query(ctx context.Context, footprint string, begin, end time.Time, productType string) ([]Product, error) {
	query := fmt.Sprintf(`footprint:"Intersects(%s)" AND platformname:"%s" AND producttype:%s AND beginposition:[%s TO %s]`,
		footprint, platformName, productType,
		begin.Format("2006-01-02T15:04:05.000Z"),
		end.Format("2006-01-02T15:04:05.000Z"))

	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("rows", "100")
	q.Set("start", "0")
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	c.logger.Debug("querying product catalogue",
		"begin", begin.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
		"product_type", productType,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalogue query failed", "error", err)
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("catalogue query returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	products := make([]Product, 0, len(apiResp.Feed.Entries))
	for _, e := range apiResp.Feed.Entries {
		p := Product{
			UUID:  e.ID,
			Title: e.Title,
			MD5:   strings.ToLower(e.str("md5")),
			Size:  e.str("size"),
		}
		if begin := e.date("beginposition"); begin != "" {
			if ts, err := time.Parse("2006-01-02T15:04:05.999Z", begin); err == nil {
				p.BeginPosition = ts
			}
		}
		products = append(products, p)
	}

	c.logger.Debug("catalogue query done", "products", len(products))
	return products, nil
}

// Download streams one product into dir, verifying the MD5 checksum when
// the catalogue carries one. The OpenSearch summary exposes the same MD5
// as the OData Checksum/Value attribute, which saves a round trip per
// product. Level 2 products arrive with a .zip name but are plain netCDF,
// so the extension is rewritten to .nc.
func (c *Client) Download(ctx context.Context, product Product, dir string) (string, error) {
	u := fmt.Sprintf("%s/odata/v1/Products('%s')/$value", c.baseURL, product.UUID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)

	c.logger.Info("downloading product", "title", product.Title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("product download failed", "title", product.Title, "error", err)
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("product download returned error",
			"status_code", resp.StatusCode,
			"title", product.Title,
		)
		return "", fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dir, productFileName(product.Title))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	hash := md5.New()
	_, err = io.Copy(io.MultiWriter(out, hash), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if product.MD5 != "" {
		if sum := hex.EncodeToString(hash.Sum(nil)); sum != product.MD5 {
			_ = os.Remove(path)
			c.logger.Error("checksum mismatch",
				"title", product.Title,
				"expected", product.MD5,
				"actual", sum,
			)
			return "", fmt.Errorf("%w for %s", ErrChecksumMismatch, product.Title)
		}
	}

	c.logger.Info("product downloaded", "path", path)
	return path, nil
}

// productFileName maps the hub's zip naming back to the netCDF payload.
func productFileName(title string) string {
	name := title
	if !strings.HasSuffix(name, ".nc") {
		name = strings.TrimSuffix(name, ".zip") + ".nc"
	}
	return name
}
