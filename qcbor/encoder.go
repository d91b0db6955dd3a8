package qcbor

import (
	"bytes"
	"math"
	"sort"
)

// maxNestingDepth bounds the encoder's nesting stack, "sufficient for
// real-world protocols" per spec.md §3.
const maxNestingDepth = 10

// maxItemsPerFrame mirrors the QCBOR C implementation's 16-bit item
// counter: a frame may hold at most 0xFFFE items (0xFFFF is reserved to
// mark indefinite length on the wire).
const maxItemsPerFrame = 0xFFFE

type frameKind uint8

const (
	frameArray frameKind = iota
	frameMap
	frameArrayIndef
	frameMapIndef
	frameBstrWrap
	frameBytesRaw
)

// nestingFrame is one entry of the Nesting Stack (spec.md §3): the major
// type of the open container, the output offset where it started (so its
// head can be back-patched once the final count/length is known), and a
// running item count.
type nestingFrame struct {
	kind  frameKind
	start int
	count uint64
}

// Encoder is the stateful CBOR producer described in spec.md §4.C. All
// Add/Open/Close methods have void-like signatures (no error return): a
// failure latches an error on the Encoder and every subsequent call becomes
// a no-op, surfaced only when Finish/FinishGetSize is called. This removes
// the need for the caller to check every individual add-call.
type Encoder struct {
	out   *outBuf
	stack []nestingFrame
	flags EncodeFlags
	err   *Error
}

// NewEncoder returns an Encoder that writes into dst (dst[:0] is used as the
// initial buffer; it grows as needed up to dst's capacity before returning
// ErrBufferTooSmall).
func NewEncoder(dst []byte) *Encoder {
	return &Encoder{out: newOutBuf(dst)}
}

// NewSizeCalculationEncoder returns an Encoder in "size-calculation mode":
// no bytes are materialized, but every operation tallies length exactly, so
// FinishGetSize reports the size a real buffer of sufficient capacity would
// require.
func NewSizeCalculationEncoder() *Encoder {
	return &Encoder{out: newSizeCalcOutBuf()}
}

// Init resets the Encoder to write into dst, discarding all prior state.
func (e *Encoder) Init(dst []byte) {
	*e = Encoder{out: newOutBuf(dst)}
}

// Configure sets the encoder's behavior flags, replacing any previously
// configured flags. It also implicitly selects the close-map strategy
// (sorting vs. not) used by every subsequent CloseMap call.
func (e *Encoder) Configure(flags EncodeFlags) {
	e.flags = flags
}

func (e *Encoder) setErr(err *Error) {
	if e.err == nil {
		e.err = err
	}
}

// Err returns the latched error, if any, without requiring Finish.
func (e *Encoder) Err() error {
	if e.err == nil {
		return nil
	}
	return e.err
}

func (e *Encoder) failed() bool {
	return e.err != nil
}

func (e *Encoder) top() *nestingFrame {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.stack[len(e.stack)-1]
}

// bumpCount increments the enclosing container's item count by one,
// representing one complete logical item (which may have been preceded by
// any number of tag numbers — AddTagNumber itself never bumps the count).
func (e *Encoder) bumpCount() {
	f := e.top()
	if f == nil {
		return
	}
	if f.count >= maxItemsPerFrame {
		e.setErr(ErrArrayTooLong)
		return
	}
	f.count++
}

func (e *Encoder) push(kind frameKind) *nestingFrame {
	if len(e.stack) >= maxNestingDepth {
		e.setErr(ErrArrayNestingTooDeep)
		return nil
	}
	e.stack = append(e.stack, nestingFrame{kind: kind, start: e.out.length})
	return &e.stack[len(e.stack)-1]
}

func (e *Encoder) pop(expect ...frameKind) (nestingFrame, bool) {
	if len(e.stack) == 0 {
		e.setErr(ErrTooManyCloses)
		return nestingFrame{}, false
	}
	f := e.stack[len(e.stack)-1]
	ok := false
	for _, k := range expect {
		if f.kind == k {
			ok = true
			break
		}
	}
	if !ok {
		e.setErr(ErrCloseMismatch)
		return nestingFrame{}, false
	}
	e.stack = e.stack[:len(e.stack)-1]
	return f, true
}

func (e *Encoder) writeHeadPreferred(major majorType, arg uint64) {
	e.out.append(encodeHeadBytes(major, arg, -1))
}

func (e *Encoder) writeHeadWidth(major majorType, arg uint64, width int) {
	e.out.append(encodeHeadBytes(major, arg, width))
}

// --- integers ---

// AddInt64 adds a signed integer using preferred serialization: the
// smallest of 1/2/4/8 argument bytes that represents the value, with
// values below 24 packed into the additional-information bits.
func (e *Encoder) AddInt64(v int64) {
	if e.failed() {
		return
	}
	if v >= 0 {
		e.writeHeadPreferred(majorUnsignedInt, uint64(v))
	} else {
		e.writeHeadPreferred(majorNegativeInt, uint64(-1-v))
	}
	e.bumpCount()
}

// AddUInt64 adds an unsigned integer using preferred serialization.
func (e *Encoder) AddUInt64(v uint64) {
	if e.failed() {
		return
	}
	e.writeHeadPreferred(majorUnsignedInt, v)
	e.bumpCount()
}

// AddNegativeUInt64 adds the negative integer whose value is -1-v, using
// preferred serialization. This allows representing the full 65-bit
// negative range that does not fit an int64.
func (e *Encoder) AddNegativeUInt64(v uint64) {
	if e.failed() {
		return
	}
	e.writeHeadPreferred(majorNegativeInt, v)
	e.bumpCount()
}

// AddInt64NoPreferred adds a signed integer always using the 8-byte
// argument width, bypassing preferred serialization.
func (e *Encoder) AddInt64NoPreferred(v int64) {
	if e.failed() {
		return
	}
	if e.flags.has(FlagDisallowNonPreferredNumbers) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	if v >= 0 {
		e.writeHeadWidth(majorUnsignedInt, uint64(v), 8)
	} else {
		e.writeHeadWidth(majorNegativeInt, uint64(-1-v), 8)
	}
	e.bumpCount()
}

// --- strings ---

// AddBytes adds a definite-length byte string, copying b into the output.
func (e *Encoder) AddBytes(b []byte) {
	if e.failed() {
		return
	}
	e.writeHeadPreferred(majorByteString, uint64(len(b)))
	e.out.append(b)
	e.bumpCount()
}

// AddText adds a definite-length UTF-8 text string, copying s into the
// output.
func (e *Encoder) AddText(s string) {
	if e.failed() {
		return
	}
	e.writeHeadPreferred(majorTextString, uint64(len(s)))
	e.out.append([]byte(s))
	e.bumpCount()
}

// OpenBytes reserves a byte-string region whose body the caller writes
// directly via AddBytesRaw; the head is back-patched with the final length
// when CloseBytes is called.
func (e *Encoder) OpenBytes() {
	if e.failed() {
		return
	}
	e.push(frameBytesRaw)
}

// AddBytesRaw appends p directly into the output buffer without any CBOR
// framing. Valid only between OpenBytes and CloseBytes.
func (e *Encoder) AddBytesRaw(p []byte) {
	if e.failed() {
		return
	}
	f := e.top()
	if f == nil || f.kind != frameBytesRaw {
		e.setErr(ErrCloseMismatch)
		return
	}
	e.out.append(p)
}

// CloseBytes closes a byte-string region opened with OpenBytes, back-
// patching its head with the number of bytes written since the open.
func (e *Encoder) CloseBytes() {
	if e.failed() {
		return
	}
	f, ok := e.pop(frameBytesRaw)
	if !ok {
		return
	}
	length := e.out.length - f.start
	e.out.insertAt(f.start, encodeHeadBytes(majorByteString, uint64(length), -1))
	e.bumpCount()
}

// --- floats ---

// dCBOR whole-integer unification bounds, per spec.md §4.C: a finite double
// whose value is an exact integer in [-(2^63+1), 2^64] is emitted as a CBOR
// integer rather than a float when FlagFloatReduction is configured. No
// float64 value is ever exactly -(2^63+1) (the representable step near
// that magnitude is far wider than 1), so using -(2^63) as the reachable
// lower bound is equivalent in practice and keeps the conversion exact.
const (
	dcborLowerBound = -9223372036854775808.0 // -(2^63)
	dcborUpperBound = 18446744073709551616.0 // 2^64
)

func isWholeInDCBORRange(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if v != math.Trunc(v) {
		return false
	}
	return v >= dcborLowerBound && v <= dcborUpperBound
}

// addDCBORInt encodes v (known whole and in range) as the smallest CBOR
// integer that represents it exactly.
func (e *Encoder) addDCBORInt(v float64) {
	if v >= 0 {
		e.AddUInt64(uint64(v)) // v < 2^64, fits
		return
	}
	e.AddInt64(int64(v)) // v >= -(2^63), fits
}

func (e *Encoder) addFloatCommon(v float64) {
	if e.flags.has(FlagFloatReduction) && isWholeInDCBORRange(v) {
		e.addDCBORInt(v)
		return
	}
	switch reductionWidth(v) {
	case 2:
		e.writeHeadWidth(majorSimple, uint64(halfBitsFromFloat64(v)), 2)
	case 4:
		e.writeHeadWidth(majorSimple, uint64(math.Float32bits(float32(v))), 4)
	default:
		e.writeHeadWidth(majorSimple, math.Float64bits(v), 8)
	}
	e.bumpCount()
}

// AddDouble adds a float64 using preferred float reduction: the shortest of
// half/single/double that preserves the value exactly (zero/NaN/Inf always
// reduce to half).
func (e *Encoder) AddDouble(v float64) {
	if e.failed() {
		return
	}
	e.addFloatCommon(v)
}

// AddFloat adds a float32 using preferred float reduction.
func (e *Encoder) AddFloat(v float32) {
	if e.failed() {
		return
	}
	e.addFloatCommon(float64(v))
}

// AddDoubleNoPreferred adds v as a raw 8-byte IEEE-754 double, bypassing
// preferred float reduction.
func (e *Encoder) AddDoubleNoPreferred(v float64) {
	if e.failed() {
		return
	}
	if e.flags.has(FlagDisallowNonPreferredNumbers) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	e.writeHeadWidth(majorSimple, math.Float64bits(v), 8)
	e.bumpCount()
}

// AddFloatNoPreferred adds v as a raw 4-byte IEEE-754 single, bypassing
// preferred float reduction.
func (e *Encoder) AddFloatNoPreferred(v float32) {
	if e.failed() {
		return
	}
	if e.flags.has(FlagDisallowNonPreferredNumbers) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	e.writeHeadWidth(majorSimple, uint64(math.Float32bits(v)), 4)
	e.bumpCount()
}

// --- simple values ---

// AddSimple adds a type-7 simple value. Values 24..31 are reserved and
// rejected with ErrEncodeUnsupported.
func (e *Encoder) AddSimple(v uint8) {
	if e.failed() {
		return
	}
	if v >= 24 && v <= 31 {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	if e.flags.has(FlagOnlyDCBORSimple) && v != simpleFalse && v != simpleTrue && v != simpleNull {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	e.writeHeadPreferred(majorSimple, uint64(v))
	e.bumpCount()
}

// AddBool adds the simple value true or false.
func (e *Encoder) AddBool(v bool) {
	if v {
		e.AddSimple(simpleTrue)
	} else {
		e.AddSimple(simpleFalse)
	}
}

// AddNull adds the simple value null.
func (e *Encoder) AddNull() {
	e.AddSimple(simpleNull)
}

// AddUndef adds the simple value undefined.
func (e *Encoder) AddUndef() {
	if e.flags.has(FlagOnlyDCBORSimple) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	e.AddSimple(simpleUndefined)
}

// --- tags ---

// AddTagNumber emits a type-6 head for tag. The next item added (of any
// kind, including a container) carries this tag; AddTagNumber itself does
// not count as an item of the enclosing container.
func (e *Encoder) AddTagNumber(tag uint64) {
	if e.failed() {
		return
	}
	e.writeHeadPreferred(majorTag, tag)
}

// --- containers ---

// OpenArray opens a definite-length array; its head is back-patched with
// the item count when CloseArray is called.
func (e *Encoder) OpenArray() {
	if e.failed() {
		return
	}
	e.push(frameArray)
}

// OpenMap opens a definite-length map.
func (e *Encoder) OpenMap() {
	if e.failed() {
		return
	}
	e.push(frameMap)
}

// CloseArray closes the most recently opened definite-length array.
func (e *Encoder) CloseArray() {
	if e.failed() {
		return
	}
	f, ok := e.pop(frameArray)
	if !ok {
		return
	}
	e.out.insertAt(f.start, encodeHeadBytes(majorArray, f.count, -1))
	e.bumpCount()
}

// CloseMap closes the most recently opened definite-length map, sorting its
// entries by encoded-label byte order first if FlagSort is configured.
func (e *Encoder) CloseMap() {
	if e.failed() {
		return
	}
	if e.flags.has(FlagSort) {
		e.closeAndSortMap()
		return
	}
	f, ok := e.pop(frameMap)
	if !ok {
		return
	}
	e.out.insertAt(f.start, encodeHeadBytes(majorMap, f.count/2, -1))
	e.bumpCount()
}

// OpenArrayIndef opens an indefinite-length array, terminated by
// CloseArrayIndef's break marker.
func (e *Encoder) OpenArrayIndef() {
	if e.failed() {
		return
	}
	if e.flags.has(FlagDisallowIndefiniteLengths) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	if f := e.push(frameArrayIndef); f != nil {
		e.out.appendByte(indefiniteHeadByte(majorArray))
	}
}

// OpenMapIndef opens an indefinite-length map.
func (e *Encoder) OpenMapIndef() {
	if e.failed() {
		return
	}
	if e.flags.has(FlagDisallowIndefiniteLengths) {
		e.setErr(ErrEncodeUnsupported)
		return
	}
	if f := e.push(frameMapIndef); f != nil {
		e.out.appendByte(indefiniteHeadByte(majorMap))
	}
}

// CloseArrayIndef writes the break marker closing an indefinite-length
// array.
func (e *Encoder) CloseArrayIndef() {
	if e.failed() {
		return
	}
	if _, ok := e.pop(frameArrayIndef); !ok {
		return
	}
	e.out.appendByte(breakByte)
	e.bumpCount()
}

// CloseMapIndef writes the break marker closing an indefinite-length map.
func (e *Encoder) CloseMapIndef() {
	if e.failed() {
		return
	}
	if _, ok := e.pop(frameMapIndef); !ok {
		return
	}
	e.out.appendByte(breakByte)
	e.bumpCount()
}

// --- byte-string wrapping ---

// BstrWrap opens a byte string that will wrap any items subsequently added,
// until CloseBstrWrap2/CancelBstrWrap. Used by COSE to wrap protected
// header maps and to delimit substructures that must be hashed byte-exact.
func (e *Encoder) BstrWrap() {
	if e.failed() {
		return
	}
	e.push(frameBstrWrap)
}

// CloseBstrWrap2 closes a wrap opened with BstrWrap, back-patching the byte
// string's head with the final length. It returns the wrapped bytes: just
// the content if includeHead is false, or the head plus content if true.
// The returned slice aliases the encoder's output buffer and is invalidated
// by any further writes that grow the buffer's backing array.
func (e *Encoder) CloseBstrWrap2(includeHead bool) []byte {
	if e.failed() {
		return nil
	}
	f, ok := e.pop(frameBstrWrap)
	if !ok {
		return nil
	}
	head := encodeHeadBytes(majorByteString, uint64(e.out.length-f.start), -1)
	e.out.insertAt(f.start, head)
	e.bumpCount()
	if e.out.sizeCalculation {
		return nil
	}
	if includeHead {
		return e.out.bytesFrom(f.start)
	}
	return e.out.bytesFrom(f.start + len(head))
}

// CloseBstrWrap closes a wrap and returns only the wrapped content (the
// common case), equivalent to CloseBstrWrap2(false).
func (e *Encoder) CloseBstrWrap() []byte {
	return e.CloseBstrWrap2(false)
}

// CancelBstrWrap undoes an open wrap. Only permitted when nothing has been
// added inside it yet.
func (e *Encoder) CancelBstrWrap() {
	if e.failed() {
		return
	}
	f := e.top()
	if f == nil || f.kind != frameBstrWrap {
		e.setErr(ErrCloseMismatch)
		return
	}
	if e.out.length != f.start {
		e.setErr(ErrCloseMismatch)
		return
	}
	e.stack = e.stack[:len(e.stack)-1]
}

// --- raw passthrough ---

// AddEncoded appends already-encoded CBOR bytes as-is, without validating
// them.
func (e *Encoder) AddEncoded(raw []byte) {
	if e.failed() {
		return
	}
	e.out.append(raw)
	e.bumpCount()
}

// --- offsets ---

// Tell returns the current output offset, usable to later hash a substring
// of the encoded output (e.g. SubString(tell)).
func (e *Encoder) Tell() int {
	return e.out.length
}

// SubString returns the encoded bytes from offset from to the current end.
// Per spec.md §4.C, any container opened before from must not yet have
// closed by the time SubString is called, or the offset is invalidated by
// a length-field back-patch shifting bytes before it; this precondition is
// not checked at runtime.
func (e *Encoder) SubString(from int) []byte {
	if e.out.sizeCalculation {
		return nil
	}
	return e.out.bytesFrom(from)
}

// --- finishing ---

// Finish verifies all containers are closed and returns the final encoded
// bytes, or an error.
func (e *Encoder) Finish() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.stack) != 0 {
		return nil, ErrArrayOrMapStillOpen
	}
	if !e.out.ok() {
		return nil, e.out.err()
	}
	return e.out.bytesFrom(0), nil
}

// FinishGetSize verifies all containers are closed and returns the final
// encoded length, valid for both real and size-calculation encoders.
func (e *Encoder) FinishGetSize() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if len(e.stack) != 0 {
		return 0, ErrArrayOrMapStillOpen
	}
	if !e.out.ok() {
		return 0, e.out.err()
	}
	return e.out.length, nil
}

// --- map sort ---

type sortedPair struct {
	label []byte
	full  []byte
}

// closeAndSortMap implements CloseMap under FlagSort: parse the map's
// (label, value) pairs as (offset, length) entries — a side table rather
// than literal in-place bubble-sort swaps, per the alternate implementation
// spec.md §9 sanctions — sort the table by encoded-label byte order, detect
// duplicate labels, and rewrite the region before back-patching the head.
func (e *Encoder) closeAndSortMap() {
	f, ok := e.pop(frameMap)
	if !ok {
		return
	}
	if e.out.sizeCalculation {
		e.out.insertAt(f.start, encodeHeadBytes(majorMap, f.count/2, -1))
		e.bumpCount()
		return
	}

	region := e.out.bytesFrom(f.start)
	regionCopy := append([]byte(nil), region...)
	in := newInBuf(regionCopy)

	pairs := make([]sortedPair, 0, f.count/2)
	for !in.atEnd() {
		labelStart := in.cursor
		if qerr := skipOneItem(in); qerr != nil {
			e.setErr(qerr)
			return
		}
		labelEnd := in.cursor
		if qerr := skipOneItem(in); qerr != nil {
			e.setErr(qerr)
			return
		}
		valueEnd := in.cursor
		pairs = append(pairs, sortedPair{
			label: regionCopy[labelStart:labelEnd],
			full:  regionCopy[labelStart:valueEnd],
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].label, pairs[j].label) < 0
	})
	for i := 1; i < len(pairs); i++ {
		if bytes.Equal(pairs[i-1].label, pairs[i].label) {
			e.setErr(ErrDuplicateLabel)
			return
		}
	}

	rebuilt := make([]byte, 0, len(regionCopy))
	for _, p := range pairs {
		rebuilt = append(rebuilt, p.full...)
	}
	e.out.overwriteAt(f.start, rebuilt)
	e.out.insertAt(f.start, encodeHeadBytes(majorMap, f.count/2, -1))
	e.bumpCount()
}
