package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"grid_supervisor/internal/models"
)

type TelemetrySQLite struct {
	db *sql.DB
}

func NewTelemetrySQLite(db *sql.DB) *TelemetrySQLite {
	return &TelemetrySQLite{db: db}
}

const (
	// DefaultTelemetryLimit caps List when the caller passes no limit.
	DefaultTelemetryLimit = 600
	maxTelemetryLimit     = 10000

	insertSampleSQL = `
		INSERT INTO grid_telemetry (sampled_at, status, plant_output_mw, city_load_mw, total_demand_mw,
			frequency_hz, voltage_pu, temperature_c, rocof_hz_s, online_substations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectSamplesSQL = `SELECT sampled_at, status, plant_output_mw, city_load_mw, total_demand_mw,
		frequency_hz, voltage_pu, temperature_c, rocof_hz_s, online_substations FROM grid_telemetry`
)

// Append stores one tick. A zero SampledAt is replaced with the current time.
func (r *TelemetrySQLite) Append(ctx context.Context, s models.TelemetrySample) error {
	if s.SampledAt.IsZero() {
		s.SampledAt = time.Now()
	}
	m := s.Metrics
	_, err := r.db.ExecContext(ctx, insertSampleSQL,
		formatTime(s.SampledAt),
		string(s.Status),
		m.PlantOutput,
		m.CityLoad,
		m.TotalDemand,
		m.GridFrequency,
		m.SystemVoltage,
		m.Temperature,
		m.RoCoF,
		s.Online,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry sample: %w", err)
	}
	return nil
}

// List returns the newest limit samples in [from, to], oldest first.
func (r *TelemetrySQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.TelemetrySample, error) {
	switch {
	case limit <= 0:
		limit = DefaultTelemetryLimit
	case limit > maxTelemetryLimit:
		limit = maxTelemetryLimit
	}

	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "sampled_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "sampled_at <= ?")
		args = append(args, formatTime(to))
	}

	q := selectSamplesSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY sampled_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var out []models.TelemetrySample
	for rows.Next() {
		var (
			s         models.TelemetrySample
			sampledAt string
			status    string
		)
		if err := rows.Scan(
			&sampledAt,
			&status,
			&s.Metrics.PlantOutput,
			&s.Metrics.CityLoad,
			&s.Metrics.TotalDemand,
			&s.Metrics.GridFrequency,
			&s.Metrics.SystemVoltage,
			&s.Metrics.Temperature,
			&s.Metrics.RoCoF,
			&s.Online,
		); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		if s.SampledAt, err = parseTime(sampledAt); err != nil {
			return nil, err
		}
		s.Status = models.SystemStatus(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
