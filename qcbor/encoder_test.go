package qcbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeIntegerArray(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 64))
	enc.OpenArray()
	enc.AddInt64(1)
	enc.AddInt64(-1)
	enc.AddInt64(24)
	enc.AddInt64(100)
	enc.AddInt64(1000)
	enc.AddInt64(-1000)
	enc.CloseArray()
	out, err := enc.Finish()
	assert.NoError(err)
	assert.Equal([]byte{
		0x86, 0x01, 0x20, 0x18, 0x18, 0x18, 0x64, 0x19, 0x03, 0xE8, 0x39, 0x03, 0xE7,
	}, out)
}

func TestEncodeSimpleMapUnsorted(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 64))
	enc.OpenMap()
	enc.AddText("a")
	enc.AddInt64(1)
	enc.AddText("b")
	enc.OpenArray()
	enc.AddInt64(2)
	enc.AddInt64(3)
	enc.CloseArray()
	enc.CloseMap()
	out, err := enc.Finish()
	assert.NoError(err)
	assert.Equal([]byte{0xA2, 0x61, 0x61, 0x01, 0x61, 0x62, 0x82, 0x02, 0x03}, out)
}

func TestEncodePreferredHalfFloat(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 16))
	enc.AddDouble(1.0)
	out, err := enc.Finish()
	assert.NoError(err)
	assert.Equal([]byte{0xF9, 0x3C, 0x00}, out)
}

func TestEncodeDeterministicMapSort(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 64))
	enc.Configure(FlagSort)
	enc.OpenMap()
	enc.AddInt64(10)
	enc.AddBool(true)
	enc.AddInt64(100)
	enc.AddBool(true)
	enc.AddInt64(-1)
	enc.AddBool(true)
	enc.AddText("z")
	enc.AddBool(true)
	enc.AddText("aa")
	enc.AddBool(true)
	enc.CloseMap()
	out, err := enc.Finish()
	assert.NoError(err)

	// Labels must appear in encoded-byte order: 0A < 18 64 < 20 < 61 7A < 62 61 61.
	dec := NewDecoder(out)
	item, err := dec.EnterMap()
	assert.NoError(err)
	assert.EqualValues(5, item.Count)

	intLabel := func(l Label) int64 {
		if l.Kind == TypeUInt64 {
			return int64(l.Uint64)
		}
		return l.Int64
	}

	value, err := dec.GetNext()
	assert.NoError(err)
	assert.EqualValues(10, intLabel(value.Label))

	value, err = dec.GetNext()
	assert.NoError(err)
	assert.EqualValues(100, intLabel(value.Label))

	value, err = dec.GetNext()
	assert.NoError(err)
	assert.EqualValues(-1, intLabel(value.Label))

	value, err = dec.GetNext()
	assert.NoError(err)
	assert.Equal(TypeTextString, value.Label.Kind)
	assert.Equal("z", value.Label.Text)

	value, err = dec.GetNext()
	assert.NoError(err)
	assert.Equal(TypeTextString, value.Label.Kind)
	assert.Equal("aa", value.Label.Text)

	assert.NoError(dec.ExitMap())
}

func TestEncodeBigNumPreferred(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 16))
	enc.AddBigNumPreferred(-1, []byte{0x00})
	out, err := enc.Finish()
	assert.NoError(err)
	assert.Equal([]byte{0x20}, out)

	enc2 := NewEncoder(make([]byte, 16))
	enc2.AddBigNum(-1, []byte{0x00})
	out2, err := enc2.Finish()
	assert.NoError(err)
	assert.Equal([]byte{0xC3, 0x41, 0x00}, out2)
}

func TestEncodeMapZeroAndBoundaries(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 8))
	enc.OpenMap()
	enc.CloseMap()
	out, err := enc.Finish()
	assert.NoError(err)
	assert.Equal([]byte{0xA0}, out)

	enc = NewEncoder(make([]byte, 64))
	enc.OpenMap()
	for i := int64(0); i < 23; i++ {
		enc.AddInt64(i)
		enc.AddBool(true)
	}
	enc.CloseMap()
	out, err = enc.Finish()
	assert.NoError(err)
	assert.Equal(byte(0xB7), out[0])

	enc = NewEncoder(make([]byte, 128))
	enc.OpenMap()
	for i := int64(0); i < 24; i++ {
		enc.AddInt64(i)
		enc.AddBool(true)
	}
	enc.CloseMap()
	out, err = enc.Finish()
	assert.NoError(err)
	assert.Equal(byte(0xB8), out[0])
	assert.Equal(byte(24), out[1])
}

func TestEncodeNestingTooDeep(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 256))
	for i := 0; i < maxNestingDepth; i++ {
		enc.OpenArray()
	}
	assert.NoError(enc.Err())
	enc.OpenArray()
	assert.ErrorIs(enc.Err(), ErrArrayNestingTooDeep)
}

func TestFinishGetSizeMatchesFinish(t *testing.T) {
	assert := assert.New(t)

	build := func(enc *Encoder) {
		enc.OpenMap()
		enc.AddText("k")
		enc.AddBytes([]byte{1, 2, 3})
		enc.CloseMap()
	}

	sizeEnc := NewSizeCalculationEncoder()
	build(sizeEnc)
	size, err := sizeEnc.FinishGetSize()
	assert.NoError(err)

	realEnc := NewEncoder(make([]byte, size))
	build(realEnc)
	out, err := realEnc.Finish()
	assert.NoError(err)
	assert.Equal(size, len(out))
}
