package models

import "time"

// Event kinds attached to every log line the engine emits.
const (
	EventSequence = "SEQUENCE"
	EventAlert    = "ALERT"
	EventTrip     = "TRIP"
	EventOperator = "OPERATOR"
	EventScenario = "SCENARIO"
	EventFault    = "FAULT"
	EventSystem   = "SYSTEM"
)

// GridEvent is a single log entry.
type GridEvent struct {
	EventID    string       `json:"event_id"`
	OccurredAt time.Time    `json:"occurred_at"`
	Kind       string       `json:"kind"`
	Message    string       `json:"message"`
	Status     SystemStatus `json:"status"` // status at the time the line was written
}

// TelemetrySample is the metrics snapshot produced by one tick.
type TelemetrySample struct {
	SampledAt time.Time    `json:"sampled_at"`
	Status    SystemStatus `json:"status"`
	Metrics   GridMetrics  `json:"metrics"`
	Online    int          `json:"online_substations"`
}
