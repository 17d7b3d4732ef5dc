package service

import "grid_supervisor/internal/models"

// Engine is the subset of *grid.Engine the services drive.
type Engine interface {
	Start() error
	Stop() error
	EmergencyShutdown(reason string) error
	AcknowledgeAlert() error
	UpdateSetting(key string, value float64) error
	ToggleSubstation(id int) error
	TriggerLineFault(id int) error
	TriggerSubstationFault(id int) error
	TriggerLoadSurge() error
	ResetFaults() error

	Snapshot() models.Snapshot
	Status() models.SystemStatus
	Events() <-chan models.GridEvent
	Samples() <-chan models.TelemetrySample
}

// Metrics is the subset of *metrics.Collector the services report to.
type Metrics interface {
	ObserveSample(s models.TelemetrySample)
	ObserveStatus(status models.SystemStatus)
	ObserveEvent(ev models.GridEvent)
	ObserveCommand(command, outcome string)
	ObservePersistError(feed string)
}

// Logger is the subset of *zap.SugaredLogger the services use.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infow(string, ...interface{})  {}
func (nopLogger) Warnw(string, ...interface{})  {}
func (nopLogger) Errorw(string, ...interface{}) {}

type nopMetrics struct{}

func (nopMetrics) ObserveSample(models.TelemetrySample) {}
func (nopMetrics) ObserveStatus(models.SystemStatus)    {}
func (nopMetrics) ObserveEvent(models.GridEvent)        {}
func (nopMetrics) ObserveCommand(string, string)        {}
func (nopMetrics) ObservePersistError(string)           {}
