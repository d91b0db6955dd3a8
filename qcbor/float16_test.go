package qcbor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReductionWidth(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(2, reductionWidth(0))
	assert.Equal(2, reductionWidth(1.0))
	assert.Equal(2, reductionWidth(math.NaN()))
	assert.Equal(2, reductionWidth(math.Inf(1)))
	assert.Equal(2, reductionWidth(math.Inf(-1)))

	// 100000.5 needs single precision (half can't represent fractions this
	// small relative to the exponent).
	assert.Equal(4, reductionWidth(100000.5))

	// 1/3 cannot be represented exactly at any of half/single, so it needs
	// full double precision.
	assert.Equal(8, reductionWidth(1.0/3.0))
}

func TestHalfBitsRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, v := range []float64{0, 1, -1, 1.5, -1.5, 65504, -65504} {
		bits := halfBitsFromFloat64(v)
		got := halfBitsToFloat64(bits)
		assert.Equal(v, got)
	}
}

func TestHalfBitsSpecialValues(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0x7C00), halfBitsFromFloat64(math.Inf(1)))
	assert.Equal(uint16(0xFC00), halfBitsFromFloat64(math.Inf(-1)))
	assert.Equal(uint16(0x8000), halfBitsFromFloat64(math.Copysign(0, -1)))
	assert.Equal(uint16(0), halfBitsFromFloat64(0))
	assert.True(math.IsNaN(halfBitsToFloat64(halfBitsFromFloat64(math.NaN()))))
}
