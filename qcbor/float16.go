package qcbor

import (
	"math"

	"github.com/x448/float16"
)

// Preferred float serialization (RFC 8949 §4.1): encode with the smallest of
// {half, single, double} that round-trips the value exactly. The conversion
// itself happens in the bit pattern (via x448/float16, which implements
// binary16<->binary32 as pure integer shifts/masks) so it never depends on
// host FPU rounding mode, per spec.md §9.

// doubleToHalfExact returns the half-precision bits for v and true if the
// conversion is exact (round-trips back to the same double), for finite,
// non-zero v. Use reductionWidth for the full zero/NaN/Inf-aware decision.
func doubleToHalfExact(v float64) (uint16, bool) {
	f32 := float32(v)
	if float64(f32) != v {
		return 0, false
	}
	h := float16.Fromfloat32(f32)
	if h.IsInf(0) || h.IsNaN() {
		return 0, false
	}
	if float64(h.Float32()) != v {
		return 0, false
	}
	return uint16(h), true
}

// singleToHalfExact mirrors doubleToHalfExact starting from a float32 that
// is already known to hold v exactly.
func singleToHalfExact(f32 float32) (uint16, bool) {
	h := float16.Fromfloat32(f32)
	if h.IsInf(0) || h.IsNaN() {
		return 0, false
	}
	if h.Float32() != f32 {
		return 0, false
	}
	return uint16(h), true
}

// reductionWidth classifies how narrowly a finite double value can be
// represented without losing precision: 2 (half), 4 (single), or 8 (double).
// Zero, NaN and Infinity always reduce to half (2), matching RFC 8949
// guidance and spec.md §4.C.
func reductionWidth(v float64) int {
	if v == 0 {
		return 2
	}
	bits := math.Float64bits(v)
	exp := (bits >> 52) & 0x7FF
	if exp == 0x7FF { // NaN or Inf
		return 2
	}
	if _, ok := doubleToHalfExact(v); ok {
		return 2
	}
	f32 := float32(v)
	if float64(f32) == v {
		if _, ok := singleToHalfExact(f32); ok {
			return 2
		}
		return 4
	}
	return 8
}

func halfBitsFromFloat64(v float64) uint16 {
	if v != v { // NaN
		return 0x7E00 // quiet NaN, no payload
	}
	switch {
	case v == 0:
		if math.Signbit(v) {
			return 0x8000
		}
		return 0
	case math.IsInf(v, 1):
		return 0x7C00
	case math.IsInf(v, -1):
		return 0xFC00
	}
	if h, ok := doubleToHalfExact(v); ok {
		return h
	}
	// Caller is responsible for only invoking this when reductionWidth==2.
	return uint16(float16.Fromfloat32(float32(v)))
}

func halfBitsToFloat64(bits uint16) float64 {
	return float64(float16.Frombits(bits).Float32())
}
