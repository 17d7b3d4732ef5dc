package service

import (
	"context"
	"errors"
	"strings"

	"grid_supervisor/internal/grid"
)

// Command outcomes reported to metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

const defaultEmergencyReason = "Operator initiated emergency shutdown."

type operatorKey struct{}

// WithOperator tags ctx with the authenticated operator issuing a command.
func WithOperator(ctx context.Context, operatorID int) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

// OperatorFrom returns the operator attached by WithOperator, or 0.
func OperatorFrom(ctx context.Context) int {
	id, _ := ctx.Value(operatorKey{}).(int)
	return id
}

// GridService forwards operator commands to the engine and audits them.
type GridService struct {
	engine  Engine
	metrics Metrics
	log     Logger
}

func NewGridService(engine Engine, metrics Metrics, log Logger) *GridService {
	return &GridService{engine: engine, metrics: metrics, log: log}
}

func (s *GridService) Start(ctx context.Context) error {
	return s.exec(ctx, "start", s.engine.Start)
}

func (s *GridService) Stop(ctx context.Context) error {
	return s.exec(ctx, "stop", s.engine.Stop)
}

// EmergencyShutdown trips the grid. An empty reason is replaced with a
// generic operator reason so the trip is always explained in the log.
func (s *GridService) EmergencyShutdown(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultEmergencyReason
	}
	return s.exec(ctx, "emergency_shutdown", func() error { return s.engine.EmergencyShutdown(reason) })
}

func (s *GridService) AcknowledgeAlert(ctx context.Context) error {
	return s.exec(ctx, "acknowledge_alert", s.engine.AcknowledgeAlert)
}

func (s *GridService) UpdateSetting(ctx context.Context, key string, value float64) error {
	return s.exec(ctx, "update_setting", func() error { return s.engine.UpdateSetting(key, value) },
		"key", key, "value", value)
}

func (s *GridService) ToggleSubstation(ctx context.Context, id int) error {
	return s.exec(ctx, "toggle_substation", func() error { return s.engine.ToggleSubstation(id) }, "substation", id)
}

func (s *GridService) TriggerLineFault(ctx context.Context, id int) error {
	return s.exec(ctx, "line_fault", func() error { return s.engine.TriggerLineFault(id) }, "line", id)
}

func (s *GridService) TriggerSubstationFault(ctx context.Context, id int) error {
	return s.exec(ctx, "substation_fault", func() error { return s.engine.TriggerSubstationFault(id) }, "substation", id)
}

func (s *GridService) TriggerLoadSurge(ctx context.Context) error {
	return s.exec(ctx, "load_surge", s.engine.TriggerLoadSurge)
}

func (s *GridService) ResetFaults(ctx context.Context) error {
	return s.exec(ctx, "reset_faults", s.engine.ResetFaults)
}

// exec runs one engine command, then logs and counts its outcome.
func (s *GridService) exec(ctx context.Context, command string, fn func() error, kv ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn()
	outcome := Outcome(err)
	s.metrics.ObserveCommand(command, outcome)

	fields := append([]interface{}{"command", command, "operator", OperatorFrom(ctx), "outcome", outcome}, kv...)
	switch outcome {
	case OutcomeOK:
		s.log.Infow("grid_command", fields...)
	case OutcomeError:
		s.log.Errorw("grid_command", append(fields, "err", err)...)
	default:
		s.log.Warnw("grid_command", append(fields, "err", err)...)
	}
	return err
}

// Outcome classifies a command error for metrics and HTTP mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, grid.ErrRejected):
		return OutcomeRejected
	case errors.Is(err, grid.ErrUnknownSetting), errors.Is(err, grid.ErrUnknownComponent):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
