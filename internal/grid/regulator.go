package grid

import "math"

// Regulator gains. With Kp = 0.5 and Ki = 0.05 the unsaturated loop has real poles
// (≈0.89 and ≈0.57 per tick).
const (
	regulatorKp            = 0.5
	regulatorKi            = 0.05
	regulatorMaxStep       = 0.02 // pu per tick
	regulatorIntegralLimit = 0.5
)

// VoltageRegulator is a bounded PI corrector driving system voltage toward
// its natural, load-sagged target.
type VoltageRegulator struct {
	kp, ki        float64
	maxStep       float64
	integralLimit float64
	integral      float64
}

func NewVoltageRegulator() *VoltageRegulator {
	return &VoltageRegulator{
		kp:            regulatorKp,
		ki:            regulatorKi,
		maxStep:       regulatorMaxStep,
		integralLimit: regulatorIntegralLimit,
	}
}

// Regulate returns the correction to add to current this tick. The result is
// always within ±0.02 pu.
func (r *VoltageRegulator) Regulate(current, target float64) float64 {
	e := target - current
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0
	}
	r.integral = clamp(r.integral+e, -r.integralLimit, r.integralLimit)
	return clamp(r.kp*e+r.ki*r.integral, -r.maxStep, r.maxStep)
}

// Reset clears the accumulated integral.
func (r *VoltageRegulator) Reset() {
	r.integral = 0
}

func (r *VoltageRegulator) Integral() float64 {
	return r.integral
}

// MaxStep is the largest correction Regulate will return.
func (r *VoltageRegulator) MaxStep() float64 {
	return r.maxStep
}
