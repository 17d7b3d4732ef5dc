package grid

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"grid_supervisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// stiffParams keeps the frequency inside tolerance for any realistic
// imbalance, so ticks run without alarms.
func stiffParams() Params {
	p := DefaultParams()
	p.InertiaConstant = 1000
	return p
}

func newTestEngine(t *testing.T, p Params) (*Engine, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testStart)
	e, err := NewEngine(Options{
		Params:   p,
		Clock:    clock,
		Rand:     rand.New(rand.NewSource(1)),
		FeedSize: 4096,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, clock
}

func sequenceLength(p Params, steps []string) time.Duration {
	return time.Duration(len(steps)) * p.StepDelay
}

func startToStable(t *testing.T, e *Engine, clock *ManualClock) {
	t.Helper()
	require.NoError(t, e.Start())
	clock.Advance(sequenceLength(e.Params(), StartupSequence))
	require.Equal(t, models.StatusStable, e.Status())
}

func countLogs(lines []string, substr string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func TestNewEngine_InitialState(t *testing.T) {
	e, _ := newTestEngine(t, DefaultParams())

	snap := e.Snapshot()
	assert.Equal(t, models.StatusOffline, snap.Status)
	assert.Equal(t, e.Params().InitialMetrics(), snap.Metrics)
	assert.Len(t, snap.Substations, 7)
	assert.Len(t, snap.Lines, 7)
	require.Len(t, snap.Logs, 1)
	assert.Equal(t, "[00:00:00] [GRID] Simulator initialized. Awaiting commands.", snap.Logs[0])

	ev := <-e.Events()
	assert.Equal(t, models.EventSystem, ev.Kind)
	assert.NotEmpty(t, ev.EventID)
}

func TestNewEngine_RejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.TickInterval = 0
	_, err := NewEngine(Options{Params: p})
	assert.ErrorIs(t, err, errInvalidParams)
}

func TestEngine_StartupReachesStableWithInitialQuantities(t *testing.T) {
	e, clock := newTestEngine(t, DefaultParams())
	p := e.Params()

	require.NoError(t, e.Start())
	snap := e.Snapshot()
	assert.Equal(t, models.StatusEnergizing, snap.Status)
	assert.Contains(t, snap.Logs[0], StartupSequence[0])

	clock.Advance(sequenceLength(p, StartupSequence) - p.StepDelay)
	assert.Equal(t, models.StatusEnergizing, e.Status())

	clock.Advance(p.StepDelay)
	snap = e.Snapshot()
	assert.Equal(t, models.StatusStable, snap.Status)
	assert.Equal(t, p.InitialMetrics(), snap.Metrics)
	assert.Equal(t, p.InitialSettings(), snap.Settings)
	for _, s := range snap.Substations {
		assert.Equal(t, models.ComponentOffline, s.Status)
	}
	for _, l := range snap.Lines {
		assert.Equal(t, models.ComponentOffline, l.Status)
	}
	for i, step := range StartupSequence {
		assert.Contains(t, snap.Logs[len(StartupSequence)-1-i], step)
	}
}

func TestEngine_PlantRampsTowardDispatch(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)

	clock.Advance(time.Second)
	assert.Equal(t, 50.0, e.Snapshot().Metrics.PlantOutput)

	require.NoError(t, e.UpdateSetting(SettingPlantDispatch, 100))
	want := []float64{60, 70, 80, 90, 100, 100}
	for _, w := range want {
		clock.Advance(time.Second)
		assert.Equal(t, w, e.Snapshot().Metrics.PlantOutput)
	}
	assert.Equal(t, models.StatusStable, e.Status())
}

func TestEngine_DemandAndRampInvariantsAcrossTicks(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)
	for _, id := range []int{1, 3, 5} {
		require.NoError(t, e.ToggleSubstation(id))
	}
	require.NoError(t, e.UpdateSetting(SettingPlantDispatch, 600))

	clock.Advance(time.Second)
	prev := e.Snapshot().Metrics.PlantOutput
	for i := 0; i < 30; i++ {
		clock.Advance(time.Second)
		snap := e.Snapshot()

		sum := 0.0
		for _, s := range snap.Substations {
			sum += s.Load
		}
		require.InDelta(t, snap.Metrics.CityLoad+sum, snap.Metrics.TotalDemand, 1e-6)
		require.LessOrEqual(t, math.Abs(snap.Metrics.PlantOutput-prev), 10.0+1e-9)
		require.GreaterOrEqual(t, snap.Metrics.GridFrequency, 55.0)
		require.LessOrEqual(t, snap.Metrics.GridFrequency, 65.0)
		require.LessOrEqual(t, snap.Metrics.Temperature, 160.0)
		prev = snap.Metrics.PlantOutput
	}
}

func TestEngine_LineFaultAndReset(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)
	require.NoError(t, e.ToggleSubstation(4))

	require.NoError(t, e.TriggerLineFault(4))
	snap := e.Snapshot()
	assert.Equal(t, models.ComponentFaulted, snap.Lines[3].Status)
	assert.Equal(t, models.ComponentFaulted, snap.Substations[3].Status)
	assert.Zero(t, snap.Substations[3].Load)
	require.NotNil(t, snap.Faults.LineFault)
	assert.Equal(t, 4, *snap.Faults.LineFault)
	assert.Contains(t, snap.Logs[0], "[SCENARIO] Simulating transmission line fault on Line 4.")

	assert.ErrorIs(t, e.ToggleSubstation(4), ErrRejected)
	assert.ErrorIs(t, e.TriggerLineFault(2), ErrRejected)

	clock.Advance(time.Second)
	assert.Zero(t, e.Snapshot().Substations[3].Load)

	require.NoError(t, e.ResetFaults())
	snap = e.Snapshot()
	assert.Equal(t, models.ComponentOffline, snap.Lines[3].Status)
	assert.Equal(t, models.ComponentOffline, snap.Substations[3].Status)
	assert.False(t, snap.Faults.Any())
	assert.Contains(t, snap.Logs[0], "[SYSTEM] All fault conditions cleared.")
	assert.Contains(t, snap.Logs[1], "[GRID] Fault on Line 4 cleared. Line is offline.")

	assert.ErrorIs(t, e.ResetFaults(), ErrRejected)
	require.NoError(t, e.ToggleSubstation(4))
}

func TestEngine_SubstationFaultAndReset(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)

	assert.ErrorIs(t, e.TriggerSubstationFault(0), ErrUnknownComponent)
	assert.ErrorIs(t, e.TriggerSubstationFault(8), ErrUnknownComponent)
	assert.ErrorIs(t, e.TriggerLineFault(99), ErrUnknownComponent)

	require.NoError(t, e.TriggerSubstationFault(3))
	snap := e.Snapshot()
	assert.Equal(t, models.ComponentFaulted, snap.Substations[2].Status)
	assert.Equal(t, models.ComponentFaulted, snap.Lines[2].Status)
	assert.ErrorIs(t, e.TriggerSubstationFault(5), ErrRejected)

	require.NoError(t, e.ResetFaults())
	snap = e.Snapshot()
	assert.Equal(t, models.ComponentOffline, snap.Substations[2].Status)
	assert.Equal(t, models.ComponentOffline, snap.Lines[2].Status)
	assert.Contains(t, snap.Logs[1], "[SUB-03] Fault cleared. Substation is offline.")
}

func TestEngine_RocofTripCascadesToBlackout(t *testing.T) {
	// Reference inertia cannot absorb the jump to minimum output against a
	// 200 MW city: the first tick trips.
	e, clock := newTestEngine(t, DefaultParams())
	p := e.Params()
	startToStable(t, e, clock)

	clock.Advance(p.TickInterval)
	snap := e.Snapshot()
	assert.Equal(t, models.StatusBlackout, snap.Status)
	assert.Less(t, snap.Metrics.RoCoF, p.RocofCritical)
	assert.Contains(t, snap.Logs[0], EmergencySequence[0])
	assert.Equal(t, 1, countLogs(snap.Logs, "[GRID] GRID INSTABILITY - RoCoF at"))
	assert.NotZero(t, e.RegulatorIntegral())

	clock.Advance(sequenceLength(p, EmergencySequence))
	snap = e.Snapshot()
	assert.Equal(t, models.StatusBlackout, snap.Status)
	assert.Equal(t, p.InitialMetrics(), snap.Metrics)
	assert.Zero(t, e.RegulatorIntegral())
	assert.Contains(t, snap.Logs[0], EmergencySequence[len(EmergencySequence)-1])
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Minute)
	assert.Equal(t, snap, e.Snapshot(), "no ticks run after blackout")
}

func TestEngine_StartDuringEmergencySequenceCancelsIt(t *testing.T) {
	e, clock := newTestEngine(t, DefaultParams())
	p := e.Params()
	startToStable(t, e, clock)
	clock.Advance(p.TickInterval)
	require.Equal(t, models.StatusBlackout, e.Status())

	clock.Advance(2 * p.StepDelay)
	require.NoError(t, e.Start())
	clock.Advance(sequenceLength(p, StartupSequence))

	snap := e.Snapshot()
	assert.Equal(t, models.StatusStable, snap.Status)
	assert.Zero(t, countLogs(snap.Logs, EmergencySequence[len(EmergencySequence)-1]))
}

func TestEngine_ControlledShutdown(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	p := e.Params()
	startToStable(t, e, clock)
	require.NoError(t, e.ToggleSubstation(1))
	require.NoError(t, e.UpdateSetting(SettingPlantDispatch, 300))
	clock.Advance(2 * time.Second)
	require.NotZero(t, e.Snapshot().Substations[0].Load)

	require.NoError(t, e.Stop())
	frozen := e.Snapshot().Metrics
	assert.Equal(t, models.StatusShuttingDown, e.Status())

	clock.Advance(sequenceLength(p, ShutdownSequence) - p.StepDelay)
	assert.Equal(t, models.StatusShuttingDown, e.Status())
	assert.Equal(t, frozen, e.Snapshot().Metrics, "no ticks while shutting down")

	clock.Advance(p.StepDelay)
	snap := e.Snapshot()
	assert.Equal(t, models.StatusOffline, snap.Status)
	assert.Equal(t, p.InitialMetrics(), snap.Metrics)
	assert.Equal(t, p.InitialSettings(), snap.Settings)
	for _, s := range snap.Substations {
		assert.Equal(t, models.ComponentOffline, s.Status)
		assert.Zero(t, s.Load)
	}
	assert.Zero(t, clock.Pending())
}

func TestEngine_EmergencyShutdownPreemptsStartup(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	require.NoError(t, e.Start())
	clock.Advance(3 * time.Second)

	require.NoError(t, e.EmergencyShutdown("Operator initiated emergency shutdown."))
	snap := e.Snapshot()
	assert.Equal(t, models.StatusBlackout, snap.Status)
	assert.Contains(t, snap.Logs[1], "[GRID] Operator initiated emergency shutdown.")

	clock.Advance(time.Minute)
	snap = e.Snapshot()
	assert.Equal(t, models.StatusBlackout, snap.Status)
	assert.Zero(t, countLogs(snap.Logs, "Grid is online. Ready for load dispatch."))
	assert.Zero(t, clock.Pending())

	assert.ErrorIs(t, e.EmergencyShutdown(""), ErrRejected)
	assert.NoError(t, e.Start())
}

func TestEngine_AlertRequiresAcknowledgement(t *testing.T) {
	p := stiffParams()
	p.FrequencyTolerance = 1e-5
	e, clock := newTestEngine(t, p)
	startToStable(t, e, clock)
	assert.ErrorIs(t, e.AcknowledgeAlert(), ErrRejected)

	clock.Advance(time.Second)
	snap := e.Snapshot()
	assert.Equal(t, models.StatusAlert, snap.Status)
	assert.Contains(t, snap.Logs[0], "[ALERT] Grid frequency out of tolerance!")

	clock.Advance(time.Second)
	assert.Equal(t, models.StatusAlert, e.Status())
	assert.Len(t, e.Samples(), 2, "ticks keep running in ALERT")

	require.NoError(t, e.AcknowledgeAlert())
	assert.Equal(t, models.StatusStable, e.Status())
	assert.Contains(t, e.Snapshot().Logs[0], "[OPERATOR] Alert acknowledged.")

	clock.Advance(time.Second)
	assert.Equal(t, models.StatusAlert, e.Status(), "condition persists")
}

func TestEngine_LoadSurgeExpiresAndIsNotExtended(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)

	require.NoError(t, e.TriggerLoadSurge())
	clock.Advance(time.Second)
	snap := e.Snapshot()
	assert.True(t, snap.Faults.LoadSurge)
	assert.GreaterOrEqual(t, snap.Metrics.CityLoad, 180*1.3)

	clock.Advance(9 * time.Second)
	assert.ErrorIs(t, e.TriggerLoadSurge(), ErrRejected)

	clock.Advance(9900 * time.Millisecond)
	assert.True(t, e.Snapshot().Faults.LoadSurge)

	clock.Advance(100 * time.Millisecond)
	snap = e.Snapshot()
	assert.False(t, snap.Faults.LoadSurge)
	assert.Equal(t, 1, countLogs(snap.Logs, "[SCENARIO] Simulating sudden city-wide load surge."))
	assert.Equal(t, 1, countLogs(snap.Logs, "[SYSTEM] Load surge subsided."))

	require.NoError(t, e.TriggerLoadSurge())
}

func TestEngine_ResetFaultsCancelsSurge(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)
	require.NoError(t, e.TriggerLoadSurge())

	require.NoError(t, e.ResetFaults())
	clock.Advance(time.Minute)

	assert.Zero(t, countLogs(e.Snapshot().Logs, "[SYSTEM] Load surge subsided."))
}

func TestEngine_UpdateSetting(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)

	require.NoError(t, e.UpdateSetting("target_voltage", 2))
	require.NoError(t, e.UpdateSetting("Target-Frequency", 10))
	require.NoError(t, e.UpdateSetting("plantdispatch", 1000))

	snap := e.Snapshot()
	assert.Equal(t, models.GridSettings{PlantDispatch: 600, TargetVoltage: 1.1, TargetFrequency: 59.5}, snap.Settings)
	assert.Contains(t, snap.Logs[0], "[OPERATOR] Plant dispatch set to 600.0 MW.")

	assert.ErrorIs(t, e.UpdateSetting("boilerPressure", 1), ErrUnknownSetting)
	assert.ErrorIs(t, e.UpdateSetting(SettingTargetVoltage, math.NaN()), ErrRejected)
	assert.Equal(t, snap, e.Snapshot())
}

func TestEngine_ToggleSubstation(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)

	require.NoError(t, e.ToggleSubstation(2))
	snap := e.Snapshot()
	assert.Equal(t, models.ComponentOnline, snap.Substations[1].Status)
	assert.Equal(t, models.ComponentOnline, snap.Lines[1].Status)
	assert.Equal(t, "[00:00:12] [SUB-02] Breaker CLOSED by operator.", snap.Logs[0])

	clock.Advance(time.Second)
	sub := e.Snapshot().Substations[1]
	assert.InDelta(t, 45, sub.Load, 2.5)
	assert.Greater(t, sub.Voltage, 0.0)

	require.NoError(t, e.ToggleSubstation(2))
	snap = e.Snapshot()
	assert.Equal(t, models.ComponentOffline, snap.Substations[1].Status)
	assert.Equal(t, models.ComponentOffline, snap.Lines[1].Status)
	assert.Zero(t, snap.Substations[1].Load)
	assert.Contains(t, snap.Logs[0], "[SUB-02] Breaker OPENED by operator.")

	assert.ErrorIs(t, e.ToggleSubstation(0), ErrUnknownComponent)
}

func TestEngine_CommandsRejectedOutsideTheirStates(t *testing.T) {
	commands := map[string]func(e *Engine) error{
		"stop":              func(e *Engine) error { return e.Stop() },
		"acknowledge":       func(e *Engine) error { return e.AcknowledgeAlert() },
		"setting":           func(e *Engine) error { return e.UpdateSetting(SettingPlantDispatch, 100) },
		"toggle":            func(e *Engine) error { return e.ToggleSubstation(1) },
		"line fault":        func(e *Engine) error { return e.TriggerLineFault(1) },
		"substation fault":  func(e *Engine) error { return e.TriggerSubstationFault(1) },
		"load surge":        func(e *Engine) error { return e.TriggerLoadSurge() },
		"reset faults":      func(e *Engine) error { return e.ResetFaults() },
		"emergency offline": func(e *Engine) error { return e.EmergencyShutdown("x") },
	}

	t.Run("offline", func(t *testing.T) {
		e, _ := newTestEngine(t, stiffParams())
		before := e.Snapshot()
		for name, cmd := range commands {
			assert.ErrorIs(t, cmd(e), ErrRejected, name)
		}
		assert.Equal(t, before, e.Snapshot(), "rejected commands leave state untouched")
	})

	t.Run("energizing", func(t *testing.T) {
		e, _ := newTestEngine(t, stiffParams())
		require.NoError(t, e.Start())
		before := e.Snapshot()
		assert.ErrorIs(t, e.Start(), ErrRejected)
		for name, cmd := range commands {
			if name == "emergency offline" {
				continue
			}
			assert.ErrorIs(t, cmd(e), ErrRejected, name)
		}
		assert.Equal(t, before, e.Snapshot())
	})

	t.Run("stable", func(t *testing.T) {
		e, clock := newTestEngine(t, stiffParams())
		startToStable(t, e, clock)
		assert.ErrorIs(t, e.Start(), ErrRejected)
		assert.ErrorIs(t, e.AcknowledgeAlert(), ErrRejected)
		assert.ErrorIs(t, e.ResetFaults(), ErrRejected)
	})
}

func TestEngine_CloseCancelsTimersAndRejectsCommands(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)
	require.NoError(t, e.TriggerLoadSurge())
	before := e.Snapshot()

	e.Close()
	clock.Advance(time.Minute)

	assert.Equal(t, before, e.Snapshot())
	assert.Zero(t, clock.Pending())
	assert.ErrorIs(t, e.Stop(), ErrRejected)
	assert.ErrorIs(t, e.EmergencyShutdown(""), ErrRejected)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e, clock := newTestEngine(t, stiffParams())
	startToStable(t, e, clock)
	require.NoError(t, e.TriggerLineFault(1))

	snap := e.Snapshot()
	snap.Substations[0].Status = models.ComponentOnline
	snap.Lines[0].Status = models.ComponentOnline
	*snap.Faults.LineFault = 6
	snap.Logs[0] = "tampered"

	fresh := e.Snapshot()
	assert.Equal(t, models.ComponentFaulted, fresh.Substations[0].Status)
	assert.Equal(t, models.ComponentFaulted, fresh.Lines[0].Status)
	assert.Equal(t, 1, *fresh.Faults.LineFault)
	assert.NotEqual(t, "tampered", fresh.Logs[0])
}

func TestEngine_FeedDropsInsteadOfBlocking(t *testing.T) {
	e, err := NewEngine(Options{
		Params:   stiffParams(),
		Clock:    NewManualClock(testStart),
		FeedSize: 1,
	})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Start())

	assert.Equal(t, uint64(1), e.Dropped())
	ev := <-e.Events()
	assert.Contains(t, ev.Message, "Simulator initialized")
}
