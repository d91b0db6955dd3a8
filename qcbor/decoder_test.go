package qcbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeIntegerArray(t *testing.T) {
	assert := assert.New(t)

	in := []byte{0x86, 0x01, 0x20, 0x18, 0x18, 0x18, 0x64, 0x19, 0x03, 0xE8, 0x39, 0x03, 0xE7}
	dec := NewDecoder(in)

	arr, err := dec.EnterArray()
	assert.NoError(err)
	assert.EqualValues(6, arr.Count)

	want := []int64{1, -1, 24, 100, 1000, -1000}
	for _, w := range want {
		v, err := dec.GetInt64()
		assert.NoError(err)
		assert.Equal(w, v)
	}
	assert.NoError(dec.ExitArray())
	assert.NoError(dec.Finish())
}

func TestDecodeSimpleMap(t *testing.T) {
	assert := assert.New(t)

	in := []byte{0xA2, 0x61, 0x61, 0x01, 0x61, 0x62, 0x82, 0x02, 0x03}
	dec := NewDecoder(in)

	m, err := dec.EnterMap()
	assert.NoError(err)
	assert.EqualValues(2, m.Count)

	v, err := dec.GetNext()
	assert.NoError(err)
	assert.Equal("a", v.Label.Text)
	assert.Equal(TypeInt64, v.Type)
	assert.EqualValues(1, v.Int64)

	v, err = dec.GetNext()
	assert.NoError(err)
	assert.Equal("b", v.Label.Text)
	assert.Equal(TypeArrayStart, v.Type)
	assert.EqualValues(2, v.Count)

	a1, err := dec.GetInt64()
	assert.NoError(err)
	assert.EqualValues(2, a1)
	a2, err := dec.GetInt64()
	assert.NoError(err)
	assert.EqualValues(3, a2)
	assert.NoError(dec.ExitArray())

	assert.NoError(dec.ExitMap())
	assert.NoError(dec.Finish())
}

func TestDecodeHalfFloat(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder([]byte{0xF9, 0x3C, 0x00})
	v, err := dec.GetDouble()
	assert.NoError(err)
	assert.Equal(1.0, v)
	assert.NoError(dec.Finish())
}

func TestGetItemInMap(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 64))
	enc.OpenMap()
	enc.AddInt64(1)
	enc.AddInt64(5)
	enc.AddText("kid")
	enc.AddBytes([]byte{0xAA, 0xBB})
	enc.CloseMap()
	out, err := enc.Finish()
	assert.NoError(err)

	dec := NewDecoder(out)
	_, err = dec.EnterMap()
	assert.NoError(err)

	kid, err := dec.GetItemInMapSZ("kid")
	assert.NoError(err)
	assert.Equal(TypeByteString, kid.Type)
	assert.Equal([]byte{0xAA, 0xBB}, kid.Bytes)

	alg, err := dec.GetItemInMapN(1)
	assert.NoError(err)
	assert.EqualValues(5, alg.Int64)

	_, err = dec.GetItemInMapN(99)
	assert.ErrorIs(err, ErrLabelNotFound)
}

func TestDecodeIndefiniteArray(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 32))
	enc.OpenArrayIndef()
	enc.AddInt64(1)
	enc.AddInt64(2)
	enc.CloseArrayIndef()
	out, err := enc.Finish()
	assert.NoError(err)

	dec := NewDecoder(out)
	arr, err := dec.EnterArray()
	assert.NoError(err)
	assert.EqualValues(indefiniteCount, arr.Count)

	v1, err := dec.GetInt64()
	assert.NoError(err)
	assert.EqualValues(1, v1)
	v2, err := dec.GetInt64()
	assert.NoError(err)
	assert.EqualValues(2, v2)

	item, err := dec.GetNext()
	assert.NoError(err)
	assert.Equal(TypeBreak, item.Type)

	assert.NoError(dec.ExitArray())
	assert.NoError(dec.Finish())
}

func TestDecodeIndefiniteStringZeroChunks(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder([]byte{0x5F, 0xFF})
	b, err := dec.GetBytes()
	assert.NoError(err)
	assert.Equal([]byte{}, b)
	assert.NoError(dec.Finish())
}

func TestDecodeBstrWrapped(t *testing.T) {
	assert := assert.New(t)

	enc := NewEncoder(make([]byte, 32))
	enc.BstrWrap()
	enc.OpenMap()
	enc.AddInt64(1)
	enc.AddInt64(5)
	enc.CloseMap()
	enc.CloseBstrWrap()
	out, err := enc.Finish()
	assert.NoError(err)

	dec := NewDecoder(out)
	_, err = dec.EnterBstrWrapped()
	assert.NoError(err)
	_, err = dec.EnterMap()
	assert.NoError(err)
	v, err := dec.GetInt64()
	assert.NoError(err)
	assert.EqualValues(5, v)
	assert.NoError(dec.ExitMap())
	assert.NoError(dec.ExitBstrWrapped())
	assert.NoError(dec.Finish())
}

func TestExitMismatch(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder([]byte{0x81, 0x01})
	err := dec.ExitArray()
	assert.ErrorIs(err, ErrExitMismatch)
}

func TestUnconsumedArrayExit(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder([]byte{0x82, 0x01, 0x02})
	_, err := dec.EnterArray()
	assert.NoError(err)
	_, err = dec.GetInt64()
	assert.NoError(err)
	err = dec.ExitArray()
	assert.ErrorIs(err, ErrArrayOrMapUnconsumed)
}
