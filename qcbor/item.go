package qcbor

// ItemType is the refined sub-type of a decoded Item, distinguishing e.g.
// Int64 from UInt64 from a 65-bit negative value that doesn't fit in
// int64, even though all three share CBOR major type 0/1.
type ItemType int

const (
	TypeNone ItemType = iota
	TypeInt64
	TypeUInt64
	TypeNegativeUInt64 // -1-UInt64Value, for values below math.MinInt64
	TypeDouble
	TypeFloat
	TypeHalfFloat
	TypeTextString
	TypeByteString
	TypeArrayStart
	TypeMapStart
	TypeTag
	TypeBool
	TypeNull
	TypeUndefined
	TypeSimple
	TypeBreak
)

// Label holds a decoded map key, which per RFC 8949 may be of any CBOR
// type; Kind indicates which field is populated.
type Label struct {
	Kind    ItemType
	Int64   int64
	Uint64  uint64
	Text    string
	Bytes   []byte
	IsValid bool
}

// Item is the tagged union produced by Decoder.GetNext: it carries the
// item's major type, refined sub-type, value payload, optional map label,
// and any tag numbers that preceded it.
//
// ByteString/TextString values are non-owning views into the Decoder's
// input buffer (or, for reassembled indefinite-length strings, into the
// configured string allocator's buffer) and must not outlive it.
type Item struct {
	Major MajorType
	Type  ItemType

	Int64   int64
	Uint64  uint64
	Double  float64
	Bytes   []byte // ByteString or TextString payload
	Count   uint64 // item/pair count for ArrayStart/MapStart; 0xFFFFFFFFFFFFFFFF sentinel means indefinite
	TagNums []uint64

	Label     Label
	HasLabel  bool
}

// indefiniteCount is the sentinel stored in Item.Count for indefinite-length
// containers, matching spec.md §3's "reserved 0xFFFF" note generalized to
// the 64-bit Count field used here.
const indefiniteCount = ^uint64(0)

// Text returns the item's value interpreted as a UTF-8 string. Valid only
// when Type == TypeTextString.
func (it *Item) Text() string {
	return string(it.Bytes)
}
