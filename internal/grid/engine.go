package grid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"grid_supervisor/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrRejected marks a command that was illegal in the current state and
	// left the grid untouched.
	ErrRejected         = errors.New("command rejected")
	ErrUnknownSetting   = errors.New("unknown setting")
	ErrUnknownComponent = errors.New("unknown component")
)

const defaultFeedSize = 256

// Logger is the subset of *zap.SugaredLogger the engine uses.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}

// Options configure a new Engine. Zero values fall back to the reference
// params, the real clock and a time-seeded random source.
type Options struct {
	Params   Params
	Clock    Clock
	Rand     *rand.Rand
	Logger   Logger
	FeedSize int
}

// Engine owns the whole simulated grid. Every command, tick, sequence step
// and surge expiry runs under mu, so collaborators only ever see consistent
// snapshots.
type Engine struct {
	mu sync.Mutex

	p     Params
	clock Clock
	rnd   *rand.Rand
	log   Logger

	status      models.SystemStatus
	metrics     models.GridMetrics
	settings    models.GridSettings
	substations []models.Substation
	lines       []models.TransmissionLine
	faults      models.FaultState
	regulator   *VoltageRegulator
	logbook     *Logbook

	seq   *Sequencer
	tick  slot
	surge slot

	events  chan models.GridEvent
	samples chan models.TelemetrySample
	dropped atomic.Uint64
	closed  bool
}

func NewEngine(opts Options) (*Engine, error) {
	p := opts.Params
	if p == (Params{}) {
		p = DefaultParams()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}
	var log Logger = nopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}
	feed := opts.FeedSize
	if feed <= 0 {
		feed = defaultFeedSize
	}

	e := &Engine{
		p:         p,
		clock:     clock,
		rnd:       rnd,
		log:       log,
		status:    models.StatusOffline,
		regulator: NewVoltageRegulator(),
		logbook:   NewLogbook(p.LogCapacity),
		events:    make(chan models.GridEvent, feed),
		samples:   make(chan models.TelemetrySample, feed),
	}
	e.seq = NewSequencer(clock, &e.mu, p.StepDelay)
	e.tick = slot{clock: clock, guard: &e.mu}
	e.surge = slot{clock: clock, guard: &e.mu}
	e.resetQuantities()
	e.record(models.EventSystem, "[GRID] Simulator initialized. Awaiting commands.")
	return e, nil
}

// Params returns the configuration the engine runs with.
func (e *Engine) Params() Params {
	return e.p
}

// Events is the feed of every log line written by the engine. Lines are
// dropped, not blocked on, when the consumer falls behind.
func (e *Engine) Events() <-chan models.GridEvent {
	return e.events
}

// Samples is the feed of per-tick metrics.
func (e *Engine) Samples() <-chan models.TelemetrySample {
	return e.samples
}

// Dropped counts feed items discarded because a consumer was too slow.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Status returns the current operational state.
func (e *Engine) Status() models.SystemStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns a deep copy of the published state.
func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.Snapshot{
		Status:      e.status,
		Metrics:     e.metrics,
		Settings:    e.settings,
		Substations: append([]models.Substation(nil), e.substations...),
		Lines:       append([]models.TransmissionLine(nil), e.lines...),
		Faults:      copyFaults(e.faults),
		Logs:        e.logbook.Lines(),
	}
}

// RegulatorIntegral exposes the voltage regulator's accumulated state.
func (e *Engine) RegulatorIntegral() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regulator.Integral()
}

// Close cancels every pending sequence step, tick and surge expiry. Commands
// issued afterwards are rejected.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.seq.Cancel()
	e.tick.cancel()
	e.surge.cancel()
}

// Start energizes a de-energized grid.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("start", e.status.Down()); err != nil {
		return err
	}
	e.resetQuantities()
	e.transition(models.StatusEnergizing)
	e.seq.Run(SequenceStartup, StartupSequence, e.narrate, func() {
		e.transition(models.StatusStable)
	})
	return nil
}

// Stop runs the controlled shutdown sequence.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("stop", e.status.Running()); err != nil {
		return err
	}
	e.transition(models.StatusShuttingDown)
	e.seq.Run(SequenceShutdown, ShutdownSequence, e.narrate, func() {
		e.transition(models.StatusOffline)
		e.resetQuantities()
	})
	return nil
}

// EmergencyShutdown trips the grid to BLACKOUT, preempting any sequence in
// flight. reason is logged when non-empty.
func (e *Engine) EmergencyShutdown(reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("emergency shutdown", !e.status.Down()); err != nil {
		return err
	}
	e.emergencyShutdown(reason)
	return nil
}

// AcknowledgeAlert returns an ALERT grid to STABLE.
func (e *Engine) AcknowledgeAlert() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("acknowledge alert", e.status == models.StatusAlert); err != nil {
		return err
	}
	e.record(models.EventOperator, "[OPERATOR] Alert acknowledged.")
	e.transition(models.StatusStable)
	return nil
}

// Setting keys accepted by UpdateSetting.
const (
	SettingPlantDispatch   = "plantDispatch"
	SettingTargetVoltage   = "targetVoltage"
	SettingTargetFrequency = "targetFrequency"
)

// UpdateSetting changes one operator set point. Values are clamped into the
// allowed range for that key.
func (e *Engine) UpdateSetting(key string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("update setting", e.status.Running()); err != nil {
		return err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrRejected, key)
	}
	switch normalizeSettingKey(key) {
	case "plantdispatch":
		e.settings.PlantDispatch = clamp(value, e.p.PlantMin, e.p.PlantMax)
		e.record(models.EventOperator, fmt.Sprintf("[OPERATOR] Plant dispatch set to %.1f MW.", e.settings.PlantDispatch))
	case "targetvoltage":
		e.settings.TargetVoltage = clamp(value, e.p.VoltageMin, e.p.VoltageMax)
		e.record(models.EventOperator, fmt.Sprintf("[OPERATOR] Target voltage set to %.2f pu.", e.settings.TargetVoltage))
	case "targetfrequency":
		e.settings.TargetFrequency = clamp(value, e.p.FrequencyMin, e.p.FrequencyMax)
		e.record(models.EventOperator, fmt.Sprintf("[OPERATOR] Target frequency set to %.2f Hz.", e.settings.TargetFrequency))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return nil
}

// ToggleSubstation opens or closes the breaker of a non-faulted substation
// and mirrors the new state onto its line.
func (e *Engine) ToggleSubstation(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("toggle substation", e.status.Running()); err != nil {
		return err
	}
	sub, err := e.substation(id)
	if err != nil {
		return err
	}
	if sub.Status == models.ComponentFaulted {
		return fmt.Errorf("%w: %s is faulted, reset faults first", ErrRejected, sub.Name)
	}

	next, action := models.ComponentOnline, "CLOSED"
	if sub.Status == models.ComponentOnline {
		next, action = models.ComponentOffline, "OPENED"
		sub.Load = 0
		sub.Voltage = 0
	}
	sub.Status = next
	if line := e.lineTo(id); line != nil && line.Status != models.ComponentFaulted {
		line.Status = next
	}
	e.record(models.EventOperator, fmt.Sprintf("[%s] Breaker %s by operator.", sub.Name, action))
	return nil
}

// guard rejects a command whose state precondition does not hold. Caller
// holds e.mu.
func (e *Engine) guard(command string, ok bool) error {
	if e.closed {
		return fmt.Errorf("%w: %s: engine closed", ErrRejected, command)
	}
	if !ok {
		e.log.Debugw("grid_command_rejected", "command", command, "status", e.status)
		return fmt.Errorf("%w: %s not allowed while %s", ErrRejected, command, e.status)
	}
	return nil
}

func (e *Engine) emergencyShutdown(reason string) {
	if reason != "" {
		e.record(models.EventTrip, "[GRID] "+reason)
	}
	e.seq.Cancel()
	e.surge.cancel()
	e.transition(models.StatusBlackout)
	e.seq.Run(SequenceEmergency, EmergencySequence, e.narrate, func() {
		e.transition(models.StatusBlackout)
		e.resetQuantities()
	})
}

// transition is the single writer of status. It arms the tick loop when
// entering STABLE/ALERT and tears it down on leaving them.
func (e *Engine) transition(next models.SystemStatus) {
	prev := e.status
	if prev == next {
		return
	}
	e.status = next
	e.log.Debugw("grid_status_changed", "from", prev, "to", next)
	switch {
	case next.Running() && !e.tick.armed():
		e.tick.arm(e.p.TickInterval, e.onTick)
	case !next.Running():
		e.tick.cancel()
	}
}

func (e *Engine) onTick() {
	if !e.status.Running() {
		return
	}
	res := Step(StepInput{
		Params:      e.p,
		Prev:        e.metrics,
		Settings:    e.settings,
		Substations: e.substations,
		LoadSurge:   e.faults.LoadSurge,
		Now:         e.clock.Now(),
		Jitter:      e.rnd.Float64,
		Regulator:   e.regulator,
	})
	e.metrics = res.Metrics
	e.substations = res.Substations
	e.publishSample()

	for _, alarm := range res.Alarms {
		if alarm.Kind == AlarmRocofTrip {
			e.log.Debugw("grid_rocof_trip", "rocof", res.Metrics.RoCoF)
			e.emergencyShutdown(alarm.Message)
			return
		}
		e.record(models.EventAlert, alarm.Message)
		e.transition(models.StatusAlert)
	}

	if e.status.Running() && !e.tick.armed() {
		e.tick.arm(e.p.TickInterval, e.onTick)
	}
}

// resetQuantities restores metrics, settings, topology, faults and the
// regulator to their initial values.
func (e *Engine) resetQuantities() {
	e.metrics = e.p.InitialMetrics()
	e.settings = e.p.InitialSettings()
	e.substations = e.p.InitialSubstations()
	e.lines = e.p.InitialLines()
	e.faults = models.FaultState{}
	e.surge.cancel()
	e.regulator.Reset()
}

func (e *Engine) narrate(step string) {
	e.record(models.EventSequence, step)
}

// record appends a line to the logbook and the event feed. Caller holds e.mu.
func (e *Engine) record(kind, message string) {
	entry := LogEntry{At: e.clock.Now(), Kind: kind, Message: message}
	e.logbook.Add(entry)
	ev := models.GridEvent{
		EventID:    uuid.NewString(),
		OccurredAt: entry.At.UTC(),
		Kind:       kind,
		Message:    message,
		Status:     e.status,
	}
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) publishSample() {
	online := 0
	for _, s := range e.substations {
		if s.Status == models.ComponentOnline {
			online++
		}
	}
	sample := models.TelemetrySample{
		SampledAt: e.clock.Now().UTC(),
		Status:    e.status,
		Metrics:   e.metrics,
		Online:    online,
	}
	select {
	case e.samples <- sample:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) substation(id int) (*models.Substation, error) {
	if id < 1 || id > len(e.substations) {
		return nil, fmt.Errorf("%w: substation %d", ErrUnknownComponent, id)
	}
	return &e.substations[id-1], nil
}

func (e *Engine) line(id int) (*models.TransmissionLine, error) {
	if id < 1 || id > len(e.lines) {
		return nil, fmt.Errorf("%w: line %d", ErrUnknownComponent, id)
	}
	return &e.lines[id-1], nil
}

func (e *Engine) lineTo(substationID int) *models.TransmissionLine {
	for i := range e.lines {
		if e.lines[i].To == substationID {
			return &e.lines[i]
		}
	}
	return nil
}

func normalizeSettingKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			continue
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func copyFaults(f models.FaultState) models.FaultState {
	out := models.FaultState{LoadSurge: f.LoadSurge}
	if f.LineFault != nil {
		id := *f.LineFault
		out.LineFault = &id
	}
	if f.SubstationFault != nil {
		id := *f.SubstationFault
		out.SubstationFault = &id
	}
	return out
}
