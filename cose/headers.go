package cose

import (
	"sort"

	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Integer header parameter labels recognized by this package (spec.md §6).
const (
	HeaderLabelAlgorithm        = 1
	HeaderLabelCritical         = 2
	HeaderLabelContentType      = 3
	HeaderLabelKeyID            = 4
	HeaderLabelIV               = 5
	HeaderLabelPartialIV        = 6
	HeaderLabelCounterSignature = 7
)

// headerValue is a decoded header parameter value: at most one of the
// fields is meaningful, selected by kind, mirroring qcbor.Label's "any CBOR
// type" flexibility for map entries (spec.md §3).
type headerValue struct {
	kind  qcbor.ItemType
	i     int64
	u     uint64
	text  string
	bytes []byte
}

// Headers holds the protected and unprotected parameter buckets of a COSE
// message (spec.md §3, "COSE message"). Protected lives on the wire as a
// byte string wrapping a CBOR map (empty map -> empty byte string);
// Unprotected is a CBOR map emitted directly.
type Headers struct {
	Protected   map[int64]headerValue
	Unprotected map[int64]headerValue

	// Crit holds the labels named by a protected "crit" parameter, if
	// any were decoded (or set via SetCritical before encoding).
	Crit []int64

	// ProtectedBytes caches the exact encoded protected map, needed
	// byte-for-byte by the to-be-signed/MACed/encrypted structures
	// (spec.md §3, "To-be-signed / To-be-MACed structure"). It is
	// populated by decode; encode computes the protected bytes afresh and
	// does not store them here.
	ProtectedBytes []byte
}

// SetCritical marks labels as critical: they are recorded in the protected
// "crit" parameter and must themselves already be present in Protected.
func (h *Headers) SetCritical(labels ...int64) {
	h.Crit = labels
}

func newHeaders() Headers {
	return Headers{
		Protected:   map[int64]headerValue{},
		Unprotected: map[int64]headerValue{},
	}
}

func (h *Headers) setProtectedInt(label int64, v int64) {
	h.Protected[label] = headerValue{kind: qcbor.TypeInt64, i: v}
}

func (h *Headers) setProtectedBytes(label int64, v []byte) {
	h.Protected[label] = headerValue{kind: qcbor.TypeByteString, bytes: v}
}

func (h *Headers) setUnprotectedBytes(label int64, v []byte) {
	h.Unprotected[label] = headerValue{kind: qcbor.TypeByteString, bytes: v}
}

func (h *Headers) setUnprotectedInt(label int64, v int64) {
	h.Unprotected[label] = headerValue{kind: qcbor.TypeInt64, i: v}
}

// Algorithm returns the "alg" parameter (label 1), searching protected
// first as RFC 9052 requires algorithm to be protected in practice, then
// unprotected for callers who relaxed that.
func (h *Headers) Algorithm() (Algorithm, bool) {
	if v, ok := h.Protected[HeaderLabelAlgorithm]; ok {
		return Algorithm(v.i), true
	}
	if v, ok := h.Unprotected[HeaderLabelAlgorithm]; ok {
		return Algorithm(v.i), true
	}
	return AlgorithmInvalid, false
}

// KeyID returns the "kid" parameter (label 4) if present.
func (h *Headers) KeyID() ([]byte, bool) {
	if v, ok := h.Unprotected[HeaderLabelKeyID]; ok {
		return v.bytes, true
	}
	if v, ok := h.Protected[HeaderLabelKeyID]; ok {
		return v.bytes, true
	}
	return nil, false
}

// IV returns the "IV" parameter (label 5) if present.
func (h *Headers) IV() ([]byte, bool) {
	if v, ok := h.Unprotected[HeaderLabelIV]; ok {
		return v.bytes, true
	}
	if v, ok := h.Protected[HeaderLabelIV]; ok {
		return v.bytes, true
	}
	return nil, false
}

// checkDuplicates enforces spec.md §4.E: a label present in both buckets
// is an error.
func (h *Headers) checkDuplicates() error {
	for label := range h.Protected {
		if _, ok := h.Unprotected[label]; ok {
			return errorf(CodeDuplicateParameter, "cose: header label %d in both protected and unprotected buckets", label)
		}
	}
	return nil
}

// checkCrit enforces spec.md §4.E: every label named in "crit" must be
// present in the protected bucket. That crit itself is protected is
// checked by decodeOuterHeaders, not here.
func (h *Headers) checkCrit(known map[int64]bool) error {
	if len(h.Crit) == 0 {
		return nil
	}
	for _, label := range h.Crit {
		if _, ok := h.Protected[label]; !ok {
			return ErrParameterNotProtected
		}
		if known != nil && !known[label] {
			return ErrUnknownCriticalParameter
		}
	}
	return nil
}

func encodeHeaderMap(m map[int64]headerValue, crit []int64) []byte {
	enc := qcbor.NewEncoder(make([]byte, 0, 256))
	enc.OpenMap()
	labels := make([]int64, 0, len(m)+1)
	for l := range m {
		if l == HeaderLabelCritical {
			continue
		}
		labels = append(labels, l)
	}
	if len(crit) > 0 {
		labels = append(labels, HeaderLabelCritical)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, label := range labels {
		enc.AddInt64(label)
		if label == HeaderLabelCritical {
			enc.OpenArray()
			for _, l := range crit {
				enc.AddInt64(l)
			}
			enc.CloseArray()
			continue
		}
		v := m[label]
		switch v.kind {
		case qcbor.TypeInt64:
			enc.AddInt64(v.i)
		case qcbor.TypeUInt64:
			enc.AddUInt64(v.u)
		case qcbor.TypeTextString:
			enc.AddText(v.text)
		case qcbor.TypeByteString:
			enc.AddBytes(v.bytes)
		default:
			enc.AddNull()
		}
	}
	enc.CloseMap()
	out, err := enc.Finish()
	if err != nil {
		return nil
	}
	return out
}

// writeUnprotected emits the unprotected bucket as a CBOR map directly into
// enc (spec.md §4.E step 5: "emit as a CBOR map directly").
func writeUnprotected(enc *qcbor.Encoder, m map[int64]headerValue) {
	enc.OpenMap()
	labels := make([]int64, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, label := range labels {
		v := m[label]
		enc.AddInt64(label)
		switch v.kind {
		case qcbor.TypeInt64:
			enc.AddInt64(v.i)
		case qcbor.TypeUInt64:
			enc.AddUInt64(v.u)
		case qcbor.TypeTextString:
			enc.AddText(v.text)
		case qcbor.TypeByteString:
			enc.AddBytes(v.bytes)
		default:
			enc.AddNull()
		}
	}
	enc.CloseMap()
}

// encodeProtected returns the byte-string body for the protected bucket:
// the empty map encodes to the empty byte string per spec.md §3.
func encodeProtected(h *Headers) ([]byte, error) {
	if len(h.Protected) == 0 && len(h.Crit) == 0 {
		return []byte{}, nil
	}
	b := encodeHeaderMap(h.Protected, h.Crit)
	if b == nil {
		return nil, ErrCBORFormatting
	}
	return b, nil
}

func decodeHeaderMapInto(dec *qcbor.Decoder, dst map[int64]headerValue, crit *[]int64) error {
	mapItem, err := dec.EnterMap()
	if err != nil {
		return err
	}
	n := mapItem.Count
	for i := uint64(0); i < n; i++ {
		item, err := dec.GetNext()
		if err != nil {
			return err
		}
		if !item.HasLabel || item.Label.Kind != qcbor.TypeInt64 && item.Label.Kind != qcbor.TypeUInt64 {
			return ErrInvalidParameterType
		}
		var label int64
		if item.Label.Kind == qcbor.TypeInt64 {
			label = item.Label.Int64
		} else {
			label = int64(item.Label.Uint64)
		}
		if label == HeaderLabelCritical {
			if item.Type != qcbor.TypeArrayStart {
				return ErrCritParameter
			}
			cnt := item.Count
			c := make([]int64, 0, cnt)
			for j := uint64(0); j < cnt; j++ {
				el, err := dec.GetInt64()
				if err != nil {
					return ErrCritParameter
				}
				c = append(c, el)
			}
			if err := dec.ExitArray(); err != nil {
				return ErrCritParameter
			}
			if crit != nil {
				*crit = c
			}
			dst[label] = headerValue{kind: qcbor.TypeInt64}
			continue
		}
		dst[label] = headerValueFromItem(item)
		if item.Type == qcbor.TypeArrayStart || item.Type == qcbor.TypeMapStart {
			if err := skipContainerBody(dec, item); err != nil {
				return err
			}
		}
	}
	return dec.ExitMap()
}

// containerIsIndefinite reports whether item (an ArrayStart/MapStart just
// read by GetNext, which already pushed a frame for it) is indefinite
// length, per Item.Count's documented sentinel.
func containerIsIndefinite(item qcbor.Item) bool {
	return item.Count == ^uint64(0)
}

// skipContainerBody drains an array or map header value that GetNext has
// already entered (pushContainerFrame pushed a frame for it) so the
// corresponding ExitArray/ExitMap can run without tripping
// ErrArrayOrMapUnconsumed, and recurses into any nested array/map elements
// so the same dangling-frame problem can't reappear one level down.
func skipContainerBody(dec *qcbor.Decoder, item qcbor.Item) error {
	indefinite := containerIsIndefinite(item)
	for i := uint64(0); indefinite || i < item.Count; i++ {
		el, err := dec.GetNext()
		if err != nil {
			return err
		}
		if el.Type == qcbor.TypeBreak {
			break
		}
		if el.Type == qcbor.TypeArrayStart || el.Type == qcbor.TypeMapStart {
			if err := skipContainerBody(dec, el); err != nil {
				return err
			}
		}
	}
	if item.Type == qcbor.TypeArrayStart {
		return dec.ExitArray()
	}
	return dec.ExitMap()
}

func headerValueFromItem(item qcbor.Item) headerValue {
	switch item.Type {
	case qcbor.TypeInt64:
		return headerValue{kind: qcbor.TypeInt64, i: item.Int64}
	case qcbor.TypeUInt64:
		return headerValue{kind: qcbor.TypeInt64, i: int64(item.Uint64)}
	case qcbor.TypeTextString:
		return headerValue{kind: qcbor.TypeTextString, text: item.Text()}
	case qcbor.TypeByteString:
		return headerValue{kind: qcbor.TypeByteString, bytes: item.Bytes}
	default:
		return headerValue{kind: item.Type}
	}
}
