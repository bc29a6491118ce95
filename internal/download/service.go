package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"space-emissions/internal/geo"
	"space-emissions/internal/providers/cds"
	"space-emissions/internal/providers/sentinel"
	"space-emissions/internal/store"
	"space-emissions/internal/timezone"
	"space-emissions/internal/types"
)

// SentinelClient is the slice of the hub client the service needs.
type SentinelClient interface {
	Query(ctx context.Context, footprint string, begin, end time.Time, productType string) ([]sentinel.Product, error)
	Download(ctx context.Context, product sentinel.Product, dir string) (string, error)
}

// CDSClient is the slice of the Climate Data Store client the service
// needs.
type CDSClient interface {
	Retrieve(ctx context.Context, dataset string, request cds.ERA5Request, path string) error
}

// ProductStore tracks which products have been downloaded already.
type ProductStore interface {
	HasProduct(ctx context.Context, uuid string) (bool, error)
	RecordProduct(ctx context.Context, p store.Product) error
}

// Input validation failures.
var (
	ErrUnknownSatellite   = errors.New("satellite not recognized, select from [s5p]")
	ErrUnknownProductType = errors.New("product type not offered")
	ErrPollutantMismatch  = errors.New("pollutant does not match product type")
	ErrBadLevels          = errors.New("pressure levels must be within [1 hPa, 1000 hPa]")
)

// The satellite crosses the equator around 13:30 local solar time on its
// ascending node.
const overpassLocalHour = 13

// Service orchestrates satellite product and reanalysis wind downloads,
// recording what landed on disk.
type Service struct {
	sentinel SentinelClient
	cds      CDSClient
	products ProductStore
	tz       timezone.Service
	logger   *slog.Logger
}

func NewService(sentinelClient SentinelClient, cdsClient CDSClient, products ProductStore, tz timezone.Service, logger *slog.Logger) *Service {
	return &Service{
		sentinel: sentinelClient,
		cds:      cdsClient,
		products: products,
		tz:       tz,
		logger:   logger.With("component", "download"),
	}
}

// TropomiOptions configure a satellite product download.
type TropomiOptions struct {
	// Satellite selects the platform. Only "s5p" is supported.
	Satellite string
	// ProductType is the hub product type, e.g. "L2__NO2___".
	ProductType string
	// Pollutant must match the product type's species.
	Pollutant types.Pollutant
	// Dir receives the files. Defaults to ./sentinel/<satellite>.
	Dir string
	// Replace re-downloads products that are already recorded.
	Replace bool
}

// Tropomi downloads the offline-stream products of one product type
// crossing the region during the period. Checksum failures are logged
// and skipped so one corrupt product does not abort a bulk download.
// Returns the number of products downloaded.
func (s *Service) Tropomi(ctx context.Context, region orb.MultiPolygon, period types.DateRange, opts TropomiOptions) (int, error) {
	if opts.Satellite == "" {
		opts.Satellite = "s5p"
	}
	if opts.Satellite != "s5p" {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSatellite, opts.Satellite)
	}
	productType, err := matchProductType(opts.ProductType)
	if err != nil {
		return 0, err
	}
	if !strings.Contains(productType, strings.ToUpper(opts.Pollutant.String())) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrPollutantMismatch, opts.Pollutant, productType)
	}
	if opts.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return 0, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		opts.Dir = filepath.Join(wd, "sentinel", opts.Satellite)
		s.logger.Warn("no data directory provided", "dir", opts.Dir)
	}

	footprint := wkt.MarshalString(region)
	lat, lon := geo.Centroid(region)
	downloaded := 0

	for _, day := range period.Dates() {
		begin, end := s.overpassWindow(lat, lon, day)
		products, err := s.sentinel.Query(ctx, footprint, begin, end, productType)
		if err != nil {
			return downloaded, fmt.Errorf("querying products for %s: %w", day.Format("2006-01-02"), err)
		}
		s.logger.Info("products found", "day", day.Format("2006-01-02"), "count", len(products))

		for _, product := range products {
			if product.ProcessingMode() != "OFFL" {
				continue
			}
			if !opts.Replace {
				have, err := s.products.HasProduct(ctx, product.UUID)
				if err != nil {
					return downloaded, err
				}
				if have {
					s.logger.Debug("product already downloaded", "title", product.Title)
					continue
				}
			}

			path, err := s.sentinel.Download(ctx, product, opts.Dir)
			if errors.Is(err, sentinel.ErrChecksumMismatch) {
				s.logger.Error("checksum error, skipping product", "title", product.Title)
				continue
			}
			if err != nil {
				return downloaded, fmt.Errorf("downloading %s: %w", product.Title, err)
			}

			if err := s.products.RecordProduct(ctx, store.Product{
				UUID:          product.UUID,
				Source:        opts.Satellite,
				ProductType:   productType,
				Title:         product.Title,
				MD5:           product.MD5,
				Size:          product.Size,
				BeginPosition: product.BeginPosition,
				Path:          path,
			}); err != nil {
				return downloaded, err
			}
			downloaded++
		}
	}
	return downloaded, nil
}

// ERA5Options configure a reanalysis wind download.
type ERA5Options struct {
	// Levels are pressure levels in hPa. Defaults to 1000 and 950.
	Levels []string
	// Times are UTC sample times as "HH:MM". Empty means the local
	// satellite overpass hour at the region's centroid.
	Times []string
	// Dir receives the files. Defaults to ./ERA5.
	Dir string
	// Replace re-downloads files that already exist.
	Replace bool
}

// ERA5 downloads u/v wind fields for every day of the period into
// <dir>/<year>/ECMWF_ERA5_uv_YYYYMMDD.nc. Existing files are kept unless
// Replace is set.
func (s *Service) ERA5(ctx context.Context, region orb.MultiPolygon, period types.DateRange, opts ERA5Options) error {
	levels, err := normalizeLevels(opts.Levels)
	if err != nil {
		return err
	}
	if opts.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		opts.Dir = filepath.Join(wd, "ERA5")
		s.logger.Warn("no data directory provided", "dir", opts.Dir)
	}

	bound := region.Bound()
	area := []float64{bound.Max[1], bound.Min[0], bound.Min[1], bound.Max[0]}
	lat, lon := geo.Centroid(region)

	for _, day := range period.Dates() {
		path := filepath.Join(opts.Dir, day.Format("2006"), fmt.Sprintf("ECMWF_ERA5_uv_%s.nc", day.Format("20060102")))
		if !opts.Replace {
			if _, err := os.Stat(path); err == nil {
				s.logger.Info("wind file already there, skipping", "path", path)
				continue
			}
		}

		times := opts.Times
		if len(times) == 0 {
			times = []string{s.overpassTime(lat, lon, day)}
		}

		request := cds.ERA5Request{
			ProductType:   "reanalysis",
			Format:        "netcdf",
			Variable:      []string{"u_component_of_wind", "v_component_of_wind"},
			PressureLevel: levels,
			Year:          day.Format("2006"),
			Month:         day.Format("01"),
			Day:           day.Format("02"),
			Time:          times,
			Area:          area,
		}
		if err := s.cds.Retrieve(ctx, cds.WindDataset, request, path); err != nil {
			return fmt.Errorf("retrieving winds for %s: %w", day.Format("2006-01-02"), err)
		}
		s.logger.Info("wind file downloaded", "path", path)
	}
	return nil
}

func (s *Service) overpassTime(lat, lon float64, day time.Time) string {
	t, err := s.tz.OverpassTimeUTC(lat, lon, day, overpassLocalHour)
	if err != nil {
		s.logger.Warn("overpass time lookup failed, using noon UTC", "error", err)
		return "12:00"
	}
	return t
}

// overpassWindow brackets the local early-afternoon overpass with three
// hours on either side. Without a timezone fix the whole day is searched.
func (s *Service) overpassWindow(lat, lon float64, day time.Time) (time.Time, time.Time) {
	hhmm, err := s.tz.OverpassTimeUTC(lat, lon, day, overpassLocalHour)
	if err != nil {
		s.logger.Warn("overpass time lookup failed, searching the whole day", "error", err)
		return day, day.AddDate(0, 0, 1)
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day, day.AddDate(0, 0, 1)
	}
	center := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return center.Add(-3 * time.Hour), center.Add(3 * time.Hour)
}

// matchProductType resolves a possibly partial product type against the
// hub's catalogue, e.g. "NO2" selects "L2__NO2___".
func matchProductType(productType string) (string, error) {
	if productType == "" {
		return "", fmt.Errorf("%w: empty product type", ErrUnknownProductType)
	}
	for _, offered := range sentinel.ProductTypes {
		if strings.Contains(offered, strings.ToUpper(productType)) {
			return offered, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownProductType, productType)
}

// normalizeLevels validates pressure levels and renders them as the API
// expects. Empty input selects the defaults.
func normalizeLevels(levels []string) ([]string, error) {
	if len(levels) == 0 {
		return []string{"1000", "950"}, nil
	}
	out := make([]string, len(levels))
	for i, level := range levels {
		v, err := strconv.Atoi(strings.TrimSpace(level))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadLevels, level)
		}
		if v < 1 || v > 1000 {
			return nil, fmt.Errorf("%w: %d", ErrBadLevels, v)
		}
		out[i] = strconv.Itoa(v)
	}
	return out, nil
}
