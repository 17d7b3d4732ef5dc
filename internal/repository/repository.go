package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grid_supervisor/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// TelemetryRepo stores one row per simulation tick.
type TelemetryRepo interface {
	Append(ctx context.Context, s models.TelemetrySample) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.TelemetrySample, error)
}

// EventRepo stores the operator log.
type EventRepo interface {
	Append(ctx context.Context, e models.GridEvent) error
	List(ctx context.Context, from, to time.Time, kind string) ([]models.GridEvent, error)
}

type Repository struct {
	TelemetryRepo TelemetryRepo
	EventRepo     EventRepo
	Auth          Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		TelemetryRepo: NewTelemetrySQLite(db),
		EventRepo:     NewEventSQLite(db),
		Auth:          NewOperatorRepository(db),
	}
}

// timeLayout is the fixed-width UTC text form every timestamp column uses, so
// lexical comparison in SQL matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
