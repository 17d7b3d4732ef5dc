package grid

import (
	"fmt"
	"math"
	"time"

	"grid_supervisor/internal/models"
)

// AlarmKind classifies a threshold violation found by a tick.
type AlarmKind int

const (
	AlarmOverTemperature AlarmKind = iota + 1
	AlarmFrequencyDeviation
	AlarmRocofTrip
)

func (k AlarmKind) String() string {
	switch k {
	case AlarmOverTemperature:
		return "over_temperature"
	case AlarmFrequencyDeviation:
		return "frequency_deviation"
	case AlarmRocofTrip:
		return "rocof_trip"
	default:
		return "unknown"
	}
}

// Alarm is a violation detected on the new tick's values.
type Alarm struct {
	Kind    AlarmKind
	Message string
}

// StepInput is everything one tick reads.
type StepInput struct {
	Params      Params
	Prev        models.GridMetrics
	Settings    models.GridSettings
	Substations []models.Substation
	LoadSurge   bool
	Now         time.Time
	Jitter      func() float64 // uniform in [0, 1)
	Regulator   *VoltageRegulator
}

// StepResult is what one tick produces. Alarms are ordered: temperature,
// frequency, RoCoF.
type StepResult struct {
	Metrics     models.GridMetrics
	Substations []models.Substation
	Alarms      []Alarm
}

// Tripped reports whether the tick breached the critical RoCoF threshold.
func (r StepResult) Tripped() bool {
	for _, a := range r.Alarms {
		if a.Kind == AlarmRocofTrip {
			return true
		}
	}
	return false
}

// Step advances the grid by one tick. It is pure apart from the regulator's
// integral state and the jitter source.
func Step(in StepInput) StepResult {
	p := in.Params
	dt := p.DeltaTime()
	jitter := in.Jitter
	if jitter == nil {
		jitter = func() float64 { return 0.5 }
	}
	reg := in.Regulator
	if reg == nil {
		reg = NewVoltageRegulator()
	}

	// 1. substation loads
	subs, subLoad := refreshSubstationLoads(p, in.Substations, jitter)

	// 2. demand
	cityLoad := round1(cityLoad(p, in.Now, in.LoadSurge))
	totalDemand := round1(cityLoad + subLoad)

	// 3. dispatch ramping
	plantOutput := rampToward(in.Prev.PlantOutput, in.Settings.PlantDispatch, p.RampRate*dt)
	plantOutput = clamp(plantOutput, p.PlantMin, p.PlantMax)

	// 4. swing equation
	target := in.Settings.TargetFrequency
	imbalance := plantOutput - totalDemand
	acceleration := imbalance / (2 * p.InertiaConstant * p.PlantMax) * target
	frequency := in.Prev.GridFrequency + acceleration*dt
	frequency -= (in.Prev.GridFrequency - target) * p.Damping * dt
	frequency = clamp(frequency, p.FrequencyFloor, p.FrequencyCeiling)
	rocof := (frequency - in.Prev.GridFrequency) / dt

	// 5. voltage
	sag := totalDemand / (p.PlantMax * p.SagCapacityFactor) * p.SagFactor
	natural := in.Settings.TargetVoltage - sag
	voltage := in.Prev.SystemVoltage + reg.Regulate(in.Prev.SystemVoltage, natural)

	// 6. temperature
	temperature := in.Prev.Temperature + p.HeatRate*plantOutput/p.PlantMax - p.CoolingRate
	temperature = clamp(temperature, p.AmbientTemperature, p.TemperatureLimit+p.TemperatureHeadroom)

	for i := range subs {
		if subs[i].Status == models.ComponentOnline {
			subs[i].Voltage = round1(voltage * p.NominalKV)
		}
	}

	return StepResult{
		Metrics: models.GridMetrics{
			PlantOutput:   round1(plantOutput),
			CityLoad:      cityLoad,
			TotalDemand:   totalDemand,
			GridFrequency: round3(frequency),
			SystemVoltage: round3(voltage),
			Temperature:   round1(temperature),
			RoCoF:         round2(rocof),
		},
		Substations: subs,
		Alarms:      evaluateThresholds(p, target, temperature, frequency, rocof),
	}
}

// SubstationBaseLoad is the jitter-free load of an ONLINE substation.
func SubstationBaseLoad(p Params, id int) float64 {
	return p.SubstationBaseLoad + float64(id-1)*p.SubstationLoadStep
}

func refreshSubstationLoads(p Params, in []models.Substation, jitter func() float64) ([]models.Substation, float64) {
	out := make([]models.Substation, len(in))
	total := 0.0
	for i, sub := range in {
		sub.Load = 0
		sub.Voltage = 0
		if sub.Status == models.ComponentOnline {
			sub.Load = round1(SubstationBaseLoad(p, sub.ID) + (jitter()-0.5)*p.SubstationJitter)
			total += sub.Load
		}
		out[i] = sub
	}
	return out, total
}

func cityLoad(p Params, now time.Time, surge bool) float64 {
	phase := float64(now.UnixNano()) / float64(p.CityLoadTimeConstant)
	load := p.CityBaseLoad + math.Sin(phase)*p.CityLoadSwing
	if surge {
		load *= p.SurgeFactor
	}
	return load
}

func rampToward(current, target, maxStep float64) float64 {
	switch {
	case current < target:
		return math.Min(current+maxStep, target)
	case current > target:
		return math.Max(current-maxStep, target)
	default:
		return current
	}
}

func evaluateThresholds(p Params, target, temperature, frequency, rocof float64) []Alarm {
	var alarms []Alarm
	if temperature > p.TemperatureLimit {
		alarms = append(alarms, Alarm{
			Kind:    AlarmOverTemperature,
			Message: fmt.Sprintf("[ALERT] Plant temperature exceeds operational limits! Temp: %.1f°C", temperature),
		})
	}
	if math.Abs(frequency-target) > target*p.FrequencyTolerance {
		alarms = append(alarms, Alarm{
			Kind:    AlarmFrequencyDeviation,
			Message: fmt.Sprintf("[ALERT] Grid frequency out of tolerance! Freq: %.2fHz", frequency),
		})
	}
	if rocof < p.RocofCritical {
		alarms = append(alarms, Alarm{
			Kind:    AlarmRocofTrip,
			Message: fmt.Sprintf("GRID INSTABILITY - RoCoF at %.2f Hz/s exceeded critical limit.", rocof),
		})
	}
	return alarms
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func roundTo(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

func round1(v float64) float64 { return roundTo(v, 1) }
func round2(v float64) float64 { return roundTo(v, 2) }
func round3(v float64) float64 { return roundTo(v, 3) }
