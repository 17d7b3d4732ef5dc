package grid

// Sequence names.
const (
	SequenceStartup   = "startup"
	SequenceShutdown  = "shutdown"
	SequenceEmergency = "emergency"
)

// StartupSequence energizes the grid and ends in STABLE.
var StartupSequence = []string{
	"Grid startup sequence initiated.",
	"Starting auxiliary systems at coal plant...",
	"Boiler ignition sequence started. Steam pressure rising.",
	"Turbine spinning up to synchronous speed...",
	"Main transformer energized.",
	"Energizing main transmission bus...",
	"Awaiting operator command to connect substations.",
	"Grid is online. Ready for load dispatch.",
}

// ShutdownSequence is the controlled stop ending in OFFLINE.
var ShutdownSequence = []string{
	"Controlled grid shutdown initiated.",
	"Ramping down plant output to minimum load.",
	"Disconnecting all substations from the grid.",
	"Opening main circuit breaker at plant.",
	"De-energizing transmission network.",
	"Spinning down turbine.",
	"Shutting down boiler and auxiliary systems.",
	"Grid is now OFFLINE.",
}

// EmergencySequence is the trip cascade ending in BLACKOUT.
var EmergencySequence = []string{
	"!!! GRID BLACKOUT SEQUENCE ACTIVATED !!!",
	"[RELAY] High-priority trip signal sent to all breakers.",
	"Cascading substation disconnections detected...",
	"Plant emergency trip triggered by grid instability.",
	"Loss of main transmission bus.",
	"Complete grid blackout.",
}
