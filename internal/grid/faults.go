package grid

import (
	"fmt"

	"grid_supervisor/internal/models"
)

// The fault model supports one line fault, one substation fault and one load
// surge at a time. Injecting a second fault of the same kind is rejected.

// TriggerLineFault faults line id and the substation it feeds.
func (e *Engine) TriggerLineFault(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("line fault", e.status.Running()); err != nil {
		return err
	}
	line, err := e.line(id)
	if err != nil {
		return err
	}
	if e.faults.LineFault != nil {
		return fmt.Errorf("%w: line fault already active on line %d", ErrRejected, *e.faults.LineFault)
	}

	e.record(models.EventScenario, fmt.Sprintf("[SCENARIO] Simulating transmission line fault on Line %d.", id))
	line.Status = models.ComponentFaulted
	if sub, err := e.substation(line.To); err == nil {
		faultSubstation(sub)
	}
	e.faults.LineFault = &id
	return nil
}

// TriggerSubstationFault faults substation id and its line.
func (e *Engine) TriggerSubstationFault(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("substation fault", e.status.Running()); err != nil {
		return err
	}
	sub, err := e.substation(id)
	if err != nil {
		return err
	}
	if e.faults.SubstationFault != nil {
		return fmt.Errorf("%w: substation fault already active on %s", ErrRejected, SubstationName(*e.faults.SubstationFault))
	}

	e.record(models.EventScenario, fmt.Sprintf("[SCENARIO] Simulating major transformer fault at Substation %d.", id))
	faultSubstation(sub)
	if line := e.lineTo(id); line != nil {
		line.Status = models.ComponentFaulted
	}
	e.faults.SubstationFault = &id
	return nil
}

// TriggerLoadSurge raises city demand until the surge expires on its own.
// Re-triggering while a surge is active does not extend it.
func (e *Engine) TriggerLoadSurge() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("load surge", e.status.Running()); err != nil {
		return err
	}
	if e.faults.LoadSurge {
		return fmt.Errorf("%w: load surge already active", ErrRejected)
	}

	e.record(models.EventScenario, "[SCENARIO] Simulating sudden city-wide load surge.")
	e.faults.LoadSurge = true
	e.surge.arm(e.p.SurgeDuration, func() {
		e.faults.LoadSurge = false
		e.record(models.EventSystem, "[SYSTEM] Load surge subsided.")
	})
	return nil
}

// ResetFaults clears every active fault in one step. Faulted components come
// back OFFLINE; the operator has to close their breakers again.
func (e *Engine) ResetFaults() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard("reset faults", e.faults.Any()); err != nil {
		return err
	}

	if id := e.faults.LineFault; id != nil {
		if line, err := e.line(*id); err == nil {
			line.Status = models.ComponentOffline
			if sub, err := e.substation(line.To); err == nil {
				clearSubstation(sub)
			}
		}
		e.record(models.EventFault, fmt.Sprintf("[GRID] Fault on Line %d cleared. Line is offline.", *id))
	}
	if id := e.faults.SubstationFault; id != nil {
		if sub, err := e.substation(*id); err == nil {
			clearSubstation(sub)
		}
		if line := e.lineTo(*id); line != nil {
			line.Status = models.ComponentOffline
		}
		e.record(models.EventFault, fmt.Sprintf("[%s] Fault cleared. Substation is offline.", SubstationName(*id)))
	}

	e.surge.cancel()
	e.faults = models.FaultState{}
	e.record(models.EventSystem, "[SYSTEM] All fault conditions cleared.")
	return nil
}

func faultSubstation(sub *models.Substation) {
	sub.Status = models.ComponentFaulted
	sub.Load = 0
	sub.Voltage = 0
}

func clearSubstation(sub *models.Substation) {
	sub.Status = models.ComponentOffline
	sub.Load = 0
	sub.Voltage = 0
}
