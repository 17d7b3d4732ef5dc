package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoltageRegulator_OutputIsBounded(t *testing.T) {
	r := NewVoltageRegulator()
	for _, e := range []float64{-5, -0.5, -0.03, 0, 0.01, 0.04, 3, 1e9} {
		out := r.Regulate(1.0, 1.0+e)
		require.LessOrEqual(t, math.Abs(out), r.MaxStep(), "error %v", e)
	}
	assert.LessOrEqual(t, math.Abs(r.Integral()), regulatorIntegralLimit)
}

func TestVoltageRegulator_IgnoresNonFiniteInput(t *testing.T) {
	r := NewVoltageRegulator()
	assert.Zero(t, r.Regulate(math.NaN(), 1))
	assert.Zero(t, r.Regulate(1, math.Inf(1)))
	assert.Zero(t, r.Integral())
}

func TestVoltageRegulator_Converges(t *testing.T) {
	r := NewVoltageRegulator()
	v, target := 1.0, 0.95
	for i := 0; i < 200; i++ {
		v += r.Regulate(v, target)
		require.GreaterOrEqual(t, v, target-0.01, "tick %d", i)
	}
	assert.InDelta(t, target, v, 1e-4)
}

func TestVoltageRegulator_Reset(t *testing.T) {
	r := NewVoltageRegulator()
	r.Regulate(1.0, 0.9)
	r.Regulate(1.0, 0.9)
	require.NotZero(t, r.Integral())

	r.Reset()

	assert.Zero(t, r.Integral())
}
