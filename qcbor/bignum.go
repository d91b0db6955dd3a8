package qcbor

// Big number and decimal-fraction/big-float tag content, per spec.md §6's
// tag list (tags 2, 3, 4, 5). These sit on top of the Encoder/Decoder
// primitives rather than inside them: a big number is just a byte string
// wearing a tag number, and a decimal fraction/big float is just a
// 2-element array wearing one.

// AddBigNum encodes a big number. sign < 0 selects the negative-bignum tag
// (3), with mantissa stored as -1-value per RFC 8949 §3.4.3; sign >= 0
// selects the positive tag (2). mantissa is big-endian; leading zero bytes
// are trimmed before it is written.
//
// AddBigNumPreferred additionally collapses small values into a plain
// CBOR integer instead of a tagged byte string, as required by the
// "preferred big number" scenario in spec.md §8: a negative bignum whose
// magnitude fits in a uint64 is emitted as a type-1 integer, and a positive
// one as a type-0 integer.
func (e *Encoder) AddBigNum(sign int, mantissa []byte) {
	if e.err != nil {
		return
	}
	mantissa = trimLeadingZeros(mantissa)
	tag := uint64(TagPositiveBignum)
	if sign < 0 {
		tag = TagNegativeBignum
	}
	e.AddTagNumber(tag)
	e.AddBytes(mantissa)
}

// AddBigNumPreferred is AddBigNum but falls back to a plain integer when
// the magnitude fits in 64 bits, per the "big number preferred" scenario
// in spec.md §8 (encoding -1 as bignum must yield CBOR `20`, not a tagged
// byte string).
func (e *Encoder) AddBigNumPreferred(sign int, mantissa []byte) {
	if e.err != nil {
		return
	}
	mantissa = trimLeadingZeros(mantissa)
	if len(mantissa) <= 8 {
		v := bytesToUint64(mantissa)
		if sign < 0 {
			e.AddNegativeUInt64(v)
		} else {
			e.AddUInt64(v)
		}
		return
	}
	e.AddBigNum(sign, mantissa)
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	return b[i:]
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// BigNum is a decoded tag-2/3 value: Sign < 0 means the tag-3 (negative)
// form, whose represented value is -1-Mantissa (as a big-endian magnitude).
type BigNum struct {
	Sign     int
	Mantissa []byte
}

// GetBigNum decodes the next item as a tag-2 or tag-3 big number.
func (d *Decoder) GetBigNum() (BigNum, error) {
	item, err := d.GetNext()
	if err != nil {
		return BigNum{}, err
	}
	if item.Type != TypeByteString || len(item.TagNums) == 0 {
		d.setErr(ErrBadOptionalTagContent)
		return BigNum{}, ErrBadOptionalTagContent
	}
	tag := item.TagNums[len(item.TagNums)-1]
	switch tag {
	case TagPositiveBignum:
		return BigNum{Sign: 1, Mantissa: item.Bytes}, nil
	case TagNegativeBignum:
		return BigNum{Sign: -1, Mantissa: item.Bytes}, nil
	default:
		d.setErr(ErrBadOptionalTagContent)
		return BigNum{}, ErrBadOptionalTagContent
	}
}

// DecimalFraction is a decoded tag-4 (decimal fraction) or tag-5 (big
// float) value: mantissa * base^exponent, base 10 for decimal fractions
// and base 2 for big floats.
type DecimalFraction struct {
	Exponent int64
	Mantissa int64
}

// AddDecimalFraction encodes a tag-4 decimal fraction: [exponent, mantissa].
func (e *Encoder) AddDecimalFraction(exponent, mantissa int64) {
	e.addExpMantissa(TagDecimalFraction, exponent, mantissa)
}

// AddBigFloat encodes a tag-5 big float: [exponent, mantissa], value =
// mantissa * 2^exponent.
func (e *Encoder) AddBigFloat(exponent, mantissa int64) {
	e.addExpMantissa(TagBigFloat, exponent, mantissa)
}

func (e *Encoder) addExpMantissa(tag uint64, exponent, mantissa int64) {
	if e.err != nil {
		return
	}
	e.AddTagNumber(tag)
	e.OpenArray()
	e.AddInt64(exponent)
	e.AddInt64(mantissa)
	e.CloseArray()
}

// GetDecimalFraction decodes a tag-4 or tag-5 [exponent, mantissa] pair.
// A malformed array shape (not exactly 2 integer elements) yields
// ErrBadExpAndMantissa, per spec.md §7's "bad-exp-and-mantissa" error.
func (d *Decoder) GetDecimalFraction() (DecimalFraction, error) {
	item, err := d.EnterArray()
	if err != nil {
		return DecimalFraction{}, err
	}
	if len(item.TagNums) == 0 || item.Count != 2 {
		d.setErr(ErrBadExpAndMantissa)
		return DecimalFraction{}, ErrBadExpAndMantissa
	}
	tag := item.TagNums[len(item.TagNums)-1]
	if tag != TagDecimalFraction && tag != TagBigFloat {
		d.setErr(ErrBadOptionalTagContent)
		return DecimalFraction{}, ErrBadOptionalTagContent
	}
	exp, err := d.GetInt64()
	if err != nil {
		return DecimalFraction{}, err
	}
	mant, err := d.GetInt64()
	if err != nil {
		return DecimalFraction{}, err
	}
	if err := d.ExitArray(); err != nil {
		return DecimalFraction{}, err
	}
	return DecimalFraction{Exponent: exp, Mantissa: mant}, nil
}
