package qcbor

// Number is the unified numeric representation returned by
// GetNumberConvertPrecisely: integers and whole-valued floats are folded
// into a common shape without precision loss, as dCBOR consumers require
// (spec.md §4.D).
type Number struct {
	IsFloat bool
	// Negative65Bit is set when the decoded value is a negative integer
	// too large in magnitude for int64 (CBOR major type 1, represented
	// value -1-Uint64).
	Negative65Bit bool
	Int64         int64
	Uint64        uint64
	Float         float64
}

// GetNumberConvertPrecisely reads the next item and converts it to a
// unified Number. Integers pass through unchanged; whole-valued finite
// floats are folded to the integer fields so that 1.0 and 1 compare equal
// without losing precision; non-whole floats are reported as IsFloat.
// Anything that is not a number yields ErrUnexpectedType.
func (d *Decoder) GetNumberConvertPrecisely() (Number, error) {
	item, err := d.GetNext()
	if err != nil {
		return Number{}, err
	}
	switch item.Type {
	case TypeInt64:
		return Number{Int64: item.Int64}, nil
	case TypeUInt64:
		return Number{Uint64: item.Uint64}, nil
	case TypeNegativeUInt64:
		return Number{Negative65Bit: true, Uint64: item.Uint64}, nil
	case TypeDouble, TypeFloat, TypeHalfFloat:
		v := item.Double
		if isWholeInDCBORRange(v) {
			if v >= 0 {
				return Number{Uint64: uint64(v)}, nil
			}
			iv := int64(v)
			if float64(iv) == v {
				return Number{Int64: iv}, nil
			}
			// Not reached: isWholeInDCBORRange admits nothing below -(2^63),
			// so the int64 conversion above is always exact.
			return Number{Negative65Bit: true, Uint64: uint64(-1 - v)}, nil
		}
		return Number{IsFloat: true, Float: v}, nil
	default:
		d.setErr(ErrUnexpectedType)
		return Number{}, ErrUnexpectedType
	}
}

// Float64 widens a Number to float64, for callers that don't need the
// precision-preserving distinction.
func (n Number) Float64() float64 {
	switch {
	case n.IsFloat:
		return n.Float
	case n.Negative65Bit:
		return -1 - float64(n.Uint64)
	case n.Uint64 != 0 || n.Int64 == 0:
		return float64(n.Uint64)
	default:
		return float64(n.Int64)
	}
}
