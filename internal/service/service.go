package service

import (
	"context"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Grid exposes the operator command surface.
type Grid interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	EmergencyShutdown(ctx context.Context, reason string) error
	AcknowledgeAlert(ctx context.Context) error
	UpdateSetting(ctx context.Context, key string, value float64) error
	ToggleSubstation(ctx context.Context, id int) error
	TriggerLineFault(ctx context.Context, id int) error
	TriggerSubstationFault(ctx context.Context, id int) error
	TriggerLoadSurge(ctx context.Context) error
	ResetFaults(ctx context.Context) error
}

// Monitoring exposes the live read-only snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.Snapshot, error)
}

// EventLog exposes the persisted operator log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.GridEvent, error)
}

// Telemetry exposes persisted per-tick history.
type Telemetry interface {
	History(ctx context.Context, f TelemetryFilter) ([]models.TelemetrySample, error)
}

// Recorder drains the engine feeds into storage and metrics.
// Stop via context cancellation in main() for graceful shutdown.
type Recorder interface {
	Run(ctx context.Context)
}

type Service struct {
	Grid
	Monitoring
	EventLog
	Telemetry
	Recorder
	Authorization
}

// Deps are the runtime collaborators the services share.
type Deps struct {
	Engine  Engine
	Metrics Metrics
	Log     Logger
	Auth    AuthOptions
}

// NewService wires the repository layer and the grid engine into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = nopLogger{}
	}
	m := deps.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	return &Service{
		Grid:          NewGridService(deps.Engine, m, log),
		Monitoring:    NewMonitoringService(deps.Engine),
		EventLog:      NewEventLogService(repos.EventRepo),
		Telemetry:     NewTelemetryService(repos.TelemetryRepo),
		Recorder:      NewRecorderService(deps.Engine, repos.EventRepo, repos.TelemetryRepo, m, log),
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}
