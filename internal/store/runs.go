package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"space-emissions/internal/methods"
	"space-emissions/internal/types"
)

// Run is one calculation request and, once finished, its outcome.
type Run struct {
	ID        string
	Method    string
	Pollutant types.Pollutant
	Region    []byte // GeoJSON as submitted
	Period    types.DateRange
	Status    methods.Status
	Error     string

	Total  *types.SectorEmission
	Grid   []byte // GeoJSON FeatureCollection
	Table  map[string]types.SectorEmission
	Enqued time.Time
}

// CreateRun records a new run in running state and returns its ID.
func (s *Store) CreateRun(ctx context.Context, method string, pollutant types.Pollutant, region []byte, period types.DateRange) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, method, pollutant, region, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, method, pollutant.String(), string(region),
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"),
		string(methods.StatusRunning))
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Info("run created", "run_id", id, "method", method, "pollutant", pollutant.String())
	return id, nil
}

// FinishRun stores a successful result and flips the run to ready.
func (s *Store) FinishRun(ctx context.Context, id string, result *methods.Result) error {
	gridJSON, err := json.Marshal(result.Grid.ToGeoJSON())
	if err != nil {
		return fmt.Errorf("failed to encode grid: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, total_kt = ?, umin_pct = ?, umax_pct = ?, grid = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(methods.StatusReady),
		nanToNull(result.Total.ValueKt), nanToNull(result.Total.UminPercent), nanToNull(result.Total.UmaxPercent),
		string(gridJSON), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if result.Table != nil {
		if err := s.storeSectors(ctx, id, result.Table); err != nil {
			return err
		}
	}

	s.logger.Info("run finished", "run_id", id, "total_kt", result.Total.ValueKt)
	return nil
}

// FailRun flips the run to failed, keeping the error message.
func (s *Store) FailRun(ctx context.Context, id string, runErr error) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(methods.StatusFailed), runErr.Error(), id)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}

	s.logger.Warn("run failed", "run_id", id, "error", runErr)
	return nil
}

// GetRun loads one run with its sector table when present.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		run              Run
		pollutant        string
		region           string
		start, end       string
		status           string
		runErr           sql.NullString
		total, umin, umax sql.NullFloat64
		grid             sql.NullString
		created          sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, method, pollutant, region, start_date, end_date, status, error,
			total_kt, umin_pct, umax_pct, grid, created_at
		FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &run.Method, &pollutant, &region, &start, &end, &status, &runErr,
		&total, &umin, &umax, &grid, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	p, err := types.ParsePollutant(pollutant)
	if err != nil {
		return nil, fmt.Errorf("run %s has unknown pollutant: %w", id, err)
	}
	period, err := types.NewDateRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("run %s has invalid period: %w", id, err)
	}

	run.Pollutant = p
	run.Region = []byte(region)
	run.Period = period
	run.Status = methods.Status(status)
	run.Error = runErr.String
	if created.Valid {
		if ts, err := time.Parse("2006-01-02 15:04:05", created.String); err == nil {
			run.Enqued = ts
		}
	}
	if grid.Valid {
		run.Grid = []byte(grid.String)
	}
	if total.Valid {
		run.Total = &types.SectorEmission{
			ValueKt:     total.Float64,
			UminPercent: umin.Float64,
			UmaxPercent: umax.Float64,
		}
	}

	table, err := s.loadSectors(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Table = table
	return &run, nil
}

// RunSummary is the list view of a run.
type RunSummary struct {
	ID        string
	Method    string
	Pollutant string
	Status    methods.Status
	Period    string
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, method, pollutant, status, start_date, end_date
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var summaries []RunSummary
	for rows.Next() {
		var (
			r          RunSummary
			status     string
			start, end string
		)
		if err := rows.Scan(&r.ID, &r.Method, &r.Pollutant, &status, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = methods.Status(status)
		r.Period = fmt.Sprintf("%s to %s", start, end)
		summaries = append(summaries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return summaries, nil
}

func (s *Store) storeSectors(ctx context.Context, id string, table *types.EmissionTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, sector := range types.Sectors() {
		row := table.Row(sector)
		if math.IsNaN(row.ValueKt) {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_sectors (run_id, sector, value_kt, umin_pct, umax_pct)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, sector) DO UPDATE SET value_kt=excluded.value_kt,
				umin_pct=excluded.umin_pct, umax_pct=excluded.umax_pct`,
			id, sector.String(), row.ValueKt, nanToNull(row.UminPercent), nanToNull(row.UmaxPercent))
		if err != nil {
			return fmt.Errorf("failed to insert sector row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sector rows: %w", err)
	}
	return nil
}

func (s *Store) loadSectors(ctx context.Context, id string) (map[string]types.SectorEmission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sector, value_kt, umin_pct, umax_pct FROM run_sectors WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	table := map[string]types.SectorEmission{}
	for rows.Next() {
		var (
			sector           string
			value, umin, umax sql.NullFloat64
		)
		if err := rows.Scan(&sector, &value, &umin, &umax); err != nil {
			return nil, fmt.Errorf("failed to scan sector row: %w", err)
		}
		table[sector] = types.SectorEmission{
			ValueKt:     value.Float64,
			UminPercent: umin.Float64,
			UmaxPercent: umax.Float64,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sector rows: %w", err)
	}
	if len(table) == 0 {
		return nil, nil
	}
	return table, nil
}

// nanToNull keeps NaN out of sqlite, which has no representation for it.
func nanToNull(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
