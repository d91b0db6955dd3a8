package qcbor

// EncodeFlags configures optional encoder behavior. The zero value is the
// most permissive ("basic CBOR") configuration.
type EncodeFlags uint16

const (
	// FlagSort sorts map entries by the byte-lexicographic order of their
	// encoded label (RFC 8949 §4.2.1) when a map is closed.
	FlagSort EncodeFlags = 1 << iota

	// FlagAllowNaNPayload is accepted by Configure but no encode call
	// consults it: AddDouble/AddFloat emit every NaN as the canonical
	// half-precision quiet NaN, whatever its payload.
	FlagAllowNaNPayload

	// FlagFloatReduction additionally unifies whole-valued finite floats
	// into the CBOR integer number space (dCBOR), on top of ordinary
	// float-width reduction which is always performed by AddDouble/AddFloat.
	FlagFloatReduction

	// FlagDisallowIndefiniteLengths rejects Open*Indef calls.
	FlagDisallowIndefiniteLengths

	// FlagDisallowNonPreferredNumbers rejects the *NoPreferred family of
	// encode calls.
	FlagDisallowNonPreferredNumbers

	// FlagOnlyDCBORSimple restricts AddSimple to false/true/null.
	FlagOnlyDCBORSimple

	// FlagOnlyPreferredBigNumbers is part of FlagsPreferred, but no encode
	// call consults it: AddBigNum emits the tagged byte-string form whether
	// or not it is set, and only AddBigNumPreferred emits plain integers.
	FlagOnlyPreferredBigNumbers
)

// Composite configurations per spec.md §6.
const (
	// FlagsPreferred disallows indefinite lengths and non-preferred number
	// encodings, and includes FlagOnlyPreferredBigNumbers.
	FlagsPreferred = FlagDisallowIndefiniteLengths | FlagDisallowNonPreferredNumbers | FlagOnlyPreferredBigNumbers

	// FlagsCDE is CBOR Deterministic Encoding: FlagsPreferred + map sort.
	FlagsCDE = FlagsPreferred | FlagSort

	// FlagsDCBOR is the dCBOR profile: FlagsCDE + float/int unification +
	// restricted simple values.
	FlagsDCBOR = FlagsCDE | FlagFloatReduction | FlagOnlyDCBORSimple
)

func (f EncodeFlags) has(bit EncodeFlags) bool {
	return f&bit != 0
}
