package models

// SystemStatus is the operational state of the whole grid.
type SystemStatus string

const (
	StatusOffline      SystemStatus = "OFFLINE"
	StatusEnergizing   SystemStatus = "ENERGIZING"
	StatusStable       SystemStatus = "STABLE"
	StatusAlert        SystemStatus = "ALERT"
	StatusShuttingDown SystemStatus = "SHUTTING_DOWN"
	StatusBlackout     SystemStatus = "BLACKOUT"
)

// AllStatuses lists every SystemStatus in declaration order.
var AllStatuses = []SystemStatus{
	StatusOffline,
	StatusEnergizing,
	StatusStable,
	StatusAlert,
	StatusShuttingDown,
	StatusBlackout,
}

// Running reports whether the tick engine is allowed to run in this state.
func (s SystemStatus) Running() bool {
	return s == StatusStable || s == StatusAlert
}

// Down reports whether the grid is de-energized and may be started.
func (s SystemStatus) Down() bool {
	return s == StatusOffline || s == StatusBlackout
}

// ComponentStatus is the state of a substation or transmission line.
type ComponentStatus string

const (
	ComponentOnline  ComponentStatus = "ONLINE"
	ComponentOffline ComponentStatus = "OFFLINE"
	ComponentFaulted ComponentStatus = "FAULTED"
)

// GridMetrics is the derived physical state published after every tick.
type GridMetrics struct {
	PlantOutput   float64 `json:"plant_output_mw"`
	CityLoad      float64 `json:"city_load_mw"`
	TotalDemand   float64 `json:"total_demand_mw"` // city load + online substation loads
	GridFrequency float64 `json:"grid_frequency_hz"`
	SystemVoltage float64 `json:"system_voltage_pu"`
	Temperature   float64 `json:"temperature_c"`
	RoCoF         float64 `json:"rocof_hz_s"`
}

// GridSettings are the operator-owned set points.
type GridSettings struct {
	PlantDispatch   float64 `json:"plant_dispatch_mw"`
	TargetVoltage   float64 `json:"target_voltage_pu"`
	TargetFrequency float64 `json:"target_frequency_hz"`
}

type Substation struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Status  ComponentStatus `json:"status"`
	Load    float64         `json:"load_mw"`
	Voltage float64         `json:"voltage_kv"`
}

type TransmissionLine struct {
	ID     int             `json:"id"`
	From   string          `json:"from"`
	To     int             `json:"to"` // substation id
	Status ComponentStatus `json:"status"`
}

// FaultState records the injected faults. Nil ids mean no fault of that kind.
type FaultState struct {
	LineFault       *int `json:"line_fault,omitempty"`
	SubstationFault *int `json:"substation_fault,omitempty"`
	LoadSurge       bool `json:"load_surge"`
}

// Any reports whether at least one fault is active.
func (f FaultState) Any() bool {
	return f.LineFault != nil || f.SubstationFault != nil || f.LoadSurge
}

// Snapshot is the read-only view handed to collaborators outside the engine.
type Snapshot struct {
	Status      SystemStatus       `json:"status"`
	Metrics     GridMetrics        `json:"metrics"`
	Settings    GridSettings       `json:"settings"`
	Substations []Substation       `json:"substations"`
	Lines       []TransmissionLine `json:"lines"`
	Faults      FaultState         `json:"faults"`
	Logs        []string           `json:"logs"` // most recent first
}
