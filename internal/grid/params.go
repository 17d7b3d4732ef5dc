package grid

import (
	"errors"
	"fmt"
	"time"

	"grid_supervisor/internal/models"
)

// Params holds every tuning knob of the simulation. DefaultParams returns the
// reference configuration.
type Params struct {
	TickInterval  time.Duration // fixed simulation step
	StepDelay     time.Duration // delay between narrated sequence steps
	SurgeDuration time.Duration // load surge auto-expiry

	SubstationCount int
	LogCapacity     int

	// Plant
	PlantMin        float64 // MW
	PlantMax        float64 // MW
	RampRate        float64 // MW per second
	InertiaConstant float64 // H, seconds

	// Frequency model
	Damping          float64 // 1/s pull toward target frequency
	FrequencyFloor   float64 // numeric clamp, Hz
	FrequencyCeiling float64 // numeric clamp, Hz

	// Operator set point bounds
	VoltageMin   float64 // pu
	VoltageMax   float64 // pu
	FrequencyMin float64 // Hz
	FrequencyMax float64 // Hz

	// Voltage model
	SagFactor         float64 // pu sag at full sag capacity
	SagCapacityFactor float64 // sag capacity = PlantMax * SagCapacityFactor
	NominalKV         float64 // substation bus voltage at 1.0 pu

	// Demand
	CityBaseLoad         float64       // MW
	CityLoadSwing        float64       // MW amplitude of the slow variation
	CityLoadTimeConstant time.Duration // argument divisor of the sinusoid
	SurgeFactor          float64
	SubstationBaseLoad   float64 // MW for substation 1
	SubstationLoadStep   float64 // MW added per substation id
	SubstationJitter     float64 // MW peak-to-peak

	// Thermal model, per tick
	AmbientTemperature  float64 // °C
	HeatRate            float64 // °C per tick at full output
	CoolingRate         float64 // °C per tick
	TemperatureLimit    float64 // °C, alarm threshold
	TemperatureHeadroom float64 // °C above the limit where temperature saturates

	// Protection
	FrequencyTolerance float64 // fraction of target frequency
	RocofCritical      float64 // Hz/s, negative

	// Defaults applied on every reset
	DefaultDispatch  float64
	DefaultVoltage   float64
	DefaultFrequency float64
}

// DefaultParams returns the reference grid: 7 substations, a 50–600 MW plant
// ramping at 10 MW/s, H = 4 s, 1 s ticks and 1.5 s sequence steps.
func DefaultParams() Params {
	return Params{
		TickInterval:  1000 * time.Millisecond,
		StepDelay:     1500 * time.Millisecond,
		SurgeDuration: 20 * time.Second,

		SubstationCount: 7,
		LogCapacity:     200,

		PlantMin:        50,
		PlantMax:        600,
		RampRate:        10,
		InertiaConstant: 4,

		Damping:          0.1,
		FrequencyFloor:   55,
		FrequencyCeiling: 65,

		VoltageMin:   0.9,
		VoltageMax:   1.1,
		FrequencyMin: 59.5,
		FrequencyMax: 60.5,

		SagFactor:         0.1,
		SagCapacityFactor: 1.5,
		NominalKV:         138,

		CityBaseLoad:         200,
		CityLoadSwing:        20,
		CityLoadTimeConstant: 30 * time.Second,
		SurgeFactor:          1.3,
		SubstationBaseLoad:   40,
		SubstationLoadStep:   5,
		SubstationJitter:     5,

		AmbientTemperature:  25,
		HeatRate:            0.1,
		CoolingRate:         0.08,
		TemperatureLimit:    150,
		TemperatureHeadroom: 10,

		FrequencyTolerance: 0.02,
		RocofCritical:      -1.0,

		DefaultDispatch:  50,
		DefaultVoltage:   1.0,
		DefaultFrequency: 60,
	}
}

var errInvalidParams = errors.New("invalid grid params")

// Validate rejects configurations the tick engine cannot run safely.
func (p Params) Validate() error {
	switch {
	case p.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", errInvalidParams)
	case p.StepDelay < 0:
		return fmt.Errorf("%w: step delay must not be negative", errInvalidParams)
	case p.SurgeDuration <= 0:
		return fmt.Errorf("%w: surge duration must be positive", errInvalidParams)
	case p.SubstationCount <= 0:
		return fmt.Errorf("%w: substation count must be positive", errInvalidParams)
	case p.LogCapacity <= 0:
		return fmt.Errorf("%w: log capacity must be positive", errInvalidParams)
	case p.PlantMax <= 0 || p.PlantMin < 0 || p.PlantMin > p.PlantMax:
		return fmt.Errorf("%w: plant range [%.1f, %.1f]", errInvalidParams, p.PlantMin, p.PlantMax)
	case p.RampRate <= 0:
		return fmt.Errorf("%w: ramp rate must be positive", errInvalidParams)
	case p.InertiaConstant <= 0:
		return fmt.Errorf("%w: inertia constant must be positive", errInvalidParams)
	case p.FrequencyFloor >= p.FrequencyCeiling:
		return fmt.Errorf("%w: frequency clamp [%.1f, %.1f]", errInvalidParams, p.FrequencyFloor, p.FrequencyCeiling)
	case p.VoltageMin > p.VoltageMax || p.FrequencyMin > p.FrequencyMax:
		return fmt.Errorf("%w: set point bounds", errInvalidParams)
	case p.CityLoadTimeConstant <= 0:
		return fmt.Errorf("%w: city load time constant must be positive", errInvalidParams)
	case p.RocofCritical >= 0:
		return fmt.Errorf("%w: critical RoCoF must be negative", errInvalidParams)
	}
	return nil
}

// DeltaTime is the tick interval in seconds.
func (p Params) DeltaTime() float64 {
	return p.TickInterval.Seconds()
}

// InitialMetrics is the metrics snapshot of a de-energized grid.
func (p Params) InitialMetrics() models.GridMetrics {
	return models.GridMetrics{
		PlantOutput:   0,
		CityLoad:      p.CityBaseLoad,
		TotalDemand:   p.CityBaseLoad,
		GridFrequency: p.DefaultFrequency,
		SystemVoltage: p.DefaultVoltage,
		Temperature:   p.AmbientTemperature,
		RoCoF:         0,
	}
}

func (p Params) InitialSettings() models.GridSettings {
	return models.GridSettings{
		PlantDispatch:   p.DefaultDispatch,
		TargetVoltage:   p.DefaultVoltage,
		TargetFrequency: p.DefaultFrequency,
	}
}

// InitialSubstations builds the fixed substation set, all OFFLINE and unloaded.
func (p Params) InitialSubstations() []models.Substation {
	out := make([]models.Substation, p.SubstationCount)
	for i := range out {
		out[i] = models.Substation{
			ID:     i + 1,
			Name:   SubstationName(i + 1),
			Status: models.ComponentOffline,
		}
	}
	return out
}

// InitialLines builds one OFFLINE line from the plant to every substation.
func (p Params) InitialLines() []models.TransmissionLine {
	out := make([]models.TransmissionLine, p.SubstationCount)
	for i := range out {
		out[i] = models.TransmissionLine{
			ID:     i + 1,
			From:   PlantName,
			To:     i + 1,
			Status: models.ComponentOffline,
		}
	}
	return out
}

// PlantName is the source end of every transmission line.
const PlantName = "PLANT"

func SubstationName(id int) string {
	return fmt.Sprintf("SUB-%02d", id)
}
