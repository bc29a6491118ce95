package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"space-emissions/internal/geo"
	"space-emissions/internal/methods/plume"
)

// InsertObservations stores a batch of column retrievals for one day in a
// single transaction.
func (s *Store) InsertObservations(ctx context.Context, productUUID string, day time.Time, observations []plume.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (product_uuid, day, lat, lon, column_value, wind_u, wind_v)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	var product interface{}
	if productUUID != "" {
		product = productUUID
	}

	dayKey := day.Format("2006-01-02")
	for _, o := range observations {
		if _, err := stmt.ExecContext(ctx, product, dayKey, o.Lat, o.Lon, o.Column, o.WindU, o.WindV); err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observations: %w", err)
	}

	s.logger.Debug("observations stored", "day", dayKey, "count", len(observations))
	return nil
}

// Observations returns the retrievals inside the region for one day. It
// satisfies the plume calculator's observation source.
func (s *Store) Observations(ctx context.Context, region orb.MultiPolygon, day time.Time) ([]plume.Observation, error) {
	bound := region.Bound()
	rows, err := s.db.QueryContext(ctx, `
		SELECT lat, lon, column_value, wind_u, wind_v FROM observations
		WHERE day = ? AND lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?`,
		day.Format("2006-01-02"), bound.Min[1], bound.Max[1], bound.Min[0], bound.Max[0])
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var observations []plume.Observation
	for rows.Next() {
		var o plume.Observation
		if err := rows.Scan(&o.Lat, &o.Lon, &o.Column, &o.WindU, &o.WindV); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		if geo.Contains(region, o.Lat, o.Lon) {
			observations = append(observations, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	return observations, nil
}

// ImportObservationsCSV bulk-loads retrievals exported as CSV with the
// header day,lat,lon,vcd,wind_u,wind_v. Rows may leave the wind columns
// empty; those are filled from the stored reanalysis winds at 1000 hPa.
// Returns the number of rows imported.
func (s *Store) ImportObservationsCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 6 || header[0] != "day" {
		return 0, fmt.Errorf("unexpected CSV header %v, want day,lat,lon,vcd,wind_u,wind_v", header)
	}

	perDay := map[string][]plume.Observation{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read CSV record: %w", err)
		}

		fields := make([]float64, 3)
		for i := range fields {
			fields[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return 0, fmt.Errorf("failed to parse CSV field %q: %w", record[i+1], err)
			}
		}
		o := plume.Observation{Lat: fields[0], Lon: fields[1], Column: fields[2]}

		if record[4] == "" || record[5] == "" {
			day, err := time.Parse("2006-01-02", record[0])
			if err != nil {
				return 0, fmt.Errorf("failed to parse CSV day %q: %w", record[0], err)
			}
			w, err := s.WindAt(ctx, day, surfaceLevel, o.Lat, o.Lon)
			if err != nil {
				return 0, err
			}
			o.WindU, o.WindV = w.U, w.V
		} else {
			if o.WindU, err = strconv.ParseFloat(record[4], 64); err != nil {
				return 0, fmt.Errorf("failed to parse CSV field %q: %w", record[4], err)
			}
			if o.WindV, err = strconv.ParseFloat(record[5], 64); err != nil {
				return 0, fmt.Errorf("failed to parse CSV field %q: %w", record[5], err)
			}
		}
		perDay[record[0]] = append(perDay[record[0]], o)
	}

	count := 0
	for dayKey, observations := range perDay {
		day, err := time.Parse("2006-01-02", dayKey)
		if err != nil {
			return 0, fmt.Errorf("failed to parse CSV day %q: %w", dayKey, err)
		}
		if err := s.InsertObservations(ctx, "", day, observations); err != nil {
			return 0, err
		}
		count += len(observations)
	}
	return count, nil
}

// ImportWindsCSV bulk-loads reanalysis wind samples exported as CSV with
// the header day,level,lat,lon,u,v. Returns the number of rows imported.
func (s *Store) ImportWindsCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 6 || header[0] != "day" || header[1] != "level" {
		return 0, fmt.Errorf("unexpected CSV header %v, want day,level,lat,lon,u,v", header)
	}

	var winds []Wind
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read CSV record: %w", err)
		}

		w := Wind{Level: record[1]}
		if w.Day, err = time.Parse("2006-01-02", record[0]); err != nil {
			return 0, fmt.Errorf("failed to parse CSV day %q: %w", record[0], err)
		}
		fields := []*float64{&w.Lat, &w.Lon, &w.U, &w.V}
		for i, f := range fields {
			if *f, err = strconv.ParseFloat(record[i+2], 64); err != nil {
				return 0, fmt.Errorf("failed to parse CSV field %q: %w", record[i+2], err)
			}
		}
		winds = append(winds, w)
	}

	if err := s.InsertWinds(ctx, winds); err != nil {
		return 0, err
	}
	return len(winds), nil
}

// surfaceLevel is the pressure level used when an observation carries no
// wind of its own.
const surfaceLevel = "1000"

// Wind is one reanalysis wind sample at a grid point.
type Wind struct {
	Day   time.Time
	Level string
	Lat   float64
	Lon   float64
	U     float64
	V     float64
}

// InsertWinds stores a batch of wind samples in one transaction.
func (s *Store) InsertWinds(ctx context.Context, winds []Wind) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO winds (day, level, lat, lon, u, v) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, w := range winds {
		if _, err := stmt.ExecContext(ctx, w.Day.Format("2006-01-02"), w.Level, w.Lat, w.Lon, w.U, w.V); err != nil {
			return fmt.Errorf("failed to insert wind: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit winds: %w", err)
	}
	return nil
}

// WindAt returns the wind sample closest to the given position for one
// day and pressure level.
func (s *Store) WindAt(ctx context.Context, day time.Time, level string, lat, lon float64) (*Wind, error) {
	w := Wind{Day: day, Level: level}
	err := s.db.QueryRowContext(ctx, `
		SELECT lat, lon, u, v FROM winds
		WHERE day = ? AND level = ?
		ORDER BY (lat - ?) * (lat - ?) + (lon - ?) * (lon - ?)
		LIMIT 1`,
		day.Format("2006-01-02"), level, lat, lat, lon, lon).Scan(&w.Lat, &w.Lon, &w.U, &w.V)
	if err != nil {
		return nil, fmt.Errorf("no wind for %s level %s: %w", day.Format("2006-01-02"), level, ErrNotFound)
	}
	return &w, nil
}
