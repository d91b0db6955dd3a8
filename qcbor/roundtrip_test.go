package qcbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegerRoundTripRefinedType(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name   string
		encode func(e *Encoder)
		check  func(t *testing.T, item Item)
	}{
		{"small positive", func(e *Encoder) { e.AddInt64(23) }, func(t *testing.T, it Item) {
			assert.Equal(TypeInt64, it.Type)
			assert.EqualValues(23, it.Int64)
		}},
		{"small negative", func(e *Encoder) { e.AddInt64(-24) }, func(t *testing.T, it Item) {
			assert.Equal(TypeInt64, it.Type)
			assert.EqualValues(-24, it.Int64)
		}},
		{"uint64 beyond int64 max", func(e *Encoder) { e.AddUInt64(1<<63 + 1) }, func(t *testing.T, it Item) {
			assert.Equal(TypeUInt64, it.Type)
			assert.EqualValues(uint64(1)<<63+1, it.Uint64)
		}},
		{"65-bit negative", func(e *Encoder) { e.AddNegativeUInt64(1 << 63) }, func(t *testing.T, it Item) {
			assert.Equal(TypeNegativeUInt64, it.Type)
			assert.EqualValues(uint64(1)<<63, it.Uint64)
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			enc := NewEncoder(make([]byte, 16))
			c.encode(enc)
			out, err := enc.Finish()
			assert.NoError(err)

			dec := NewDecoder(out)
			item, err := dec.GetNext()
			assert.NoError(err)
			c.check(t, item)
			assert.NoError(dec.Finish())
		})
	}
}

func TestFloatRoundTripMinimalWidth(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		v         float64
		wantWidth int // total encoded bytes: 3 (half), 5 (single), 9 (double)
	}{
		{0.0, 3},
		{1.0, 3},
		{65504, 3},           // max half-precision magnitude
		{100000.5, 5},        // needs single precision
		{1.0 / 3.0, 9},       // needs double precision
	}

	for _, c := range cases {
		enc := NewEncoder(make([]byte, 16))
		enc.AddDouble(c.v)
		out, err := enc.Finish()
		assert.NoError(err)
		assert.Equal(c.wantWidth, len(out))

		dec := NewDecoder(out)
		got, err := dec.GetDouble()
		assert.NoError(err)
		assert.Equal(c.v, got)
	}
}

func TestByteStringRoundTrip(t *testing.T) {
	assert := assert.New(t)

	b := make([]byte, 300)
	for i := range b {
		b[i] = byte(i)
	}

	enc := NewEncoder(make([]byte, 400))
	enc.AddBytes(b)
	out, err := enc.Finish()
	assert.NoError(err)

	dec := NewDecoder(out)
	got, err := dec.GetBytes()
	assert.NoError(err)
	assert.Equal(b, got)
	assert.NoError(dec.Finish())
}

func TestCDEIsByteIdenticalAcrossRuns(t *testing.T) {
	assert := assert.New(t)

	build := func() []byte {
		enc := NewEncoder(make([]byte, 128))
		enc.Configure(FlagsCDE)
		enc.OpenMap()
		enc.AddText("z")
		enc.AddInt64(1)
		enc.AddInt64(10)
		enc.AddInt64(2)
		enc.AddText("aa")
		enc.AddInt64(3)
		enc.CloseMap()
		out, err := enc.Finish()
		assert.NoError(err)
		return out
	}

	first := build()
	second := build()
	assert.Equal(first, second)
}

func TestIntegerBoundaryWidths(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		v         int64
		wantBytes int
	}{
		{23, 1},
		{24, 2},
		{255, 2},
		{256, 3},
		{65535, 3},
		{65536, 5},
	}
	for _, c := range cases {
		enc := NewEncoder(make([]byte, 16))
		enc.AddInt64(c.v)
		out, err := enc.Finish()
		assert.NoError(err)
		assert.Equal(c.wantBytes, len(out))
	}
}

func TestMaxNestingDepthBoundary(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 256))
	for i := 0; i < maxNestingDepth; i++ {
		enc.OpenArray()
	}
	for i := 0; i < maxNestingDepth; i++ {
		enc.CloseArray()
	}
	_, err := enc.Finish()
	assert.NoError(err)
}
