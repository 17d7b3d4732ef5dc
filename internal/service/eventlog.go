package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventKind = errors.New("unknown event kind")
)

var eventKinds = map[string]bool{
	models.EventSequence: true,
	models.EventAlert:    true,
	models.EventTrip:     true,
	models.EventOperator: true,
	models.EventScenario: true,
	models.EventFault:    true,
	models.EventSystem:   true,
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventKind trims spaces and uppercases the event kind filter.
func normalizeEventKind(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeRange converts both bounds to UTC and validates their order.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return from, to, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.GridEvent, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	kind := normalizeEventKind(f.Kind)
	if kind != "" && !eventKinds[kind] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, f.Kind)
	}
	return s.eventRepo.List(ctx, from, to, kind)
}
