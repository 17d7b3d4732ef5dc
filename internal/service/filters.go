package service

import "time"

// LogFilter supports history filtering by time range and event kind.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Kind string    // "", "SEQUENCE", "ALERT", "TRIP", "OPERATOR", "SCENARIO", "FAULT", "SYSTEM"
}

// TelemetryFilter selects the newest Limit samples inside [From, To].
type TelemetryFilter struct {
	From  time.Time
	To    time.Time
	Limit int // <= 0 means the repository default
}
