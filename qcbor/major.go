package qcbor

// majorType is the upper 3 bits of a CBOR head byte.
type majorType uint8

const (
	majorUnsignedInt majorType = 0
	majorNegativeInt majorType = 1
	majorByteString  majorType = 2
	majorTextString  majorType = 3
	majorArray       majorType = 4
	majorMap         majorType = 5
	majorTag         majorType = 6
	majorSimple      majorType = 7
)

// Additional-information values with special meaning.
const (
	aiOneByte    = 24
	aiTwoByte    = 25
	aiFourByte   = 26
	aiEightByte  = 27
	aiReservedLo = 28
	aiReservedHi = 30
	aiIndefinite = 31
)

// Simple value codes for major type 7.
const (
	simpleFalse     = 20
	simpleTrue      = 21
	simpleNull      = 22
	simpleUndefined = 23
	simpleOneByte   = 24
	simpleHalf      = 25
	simpleSingle    = 26
	simpleDouble    = 27
	simpleBreak     = 31
)

// breakByte is the stand-alone indefinite-length terminator, 0xFF.
const breakByte = byte(majorSimple)<<5 | aiIndefinite

// MajorType identifies the major type of a decoded CBOR item, independent of
// the refined ItemType.
type MajorType = majorType

// Exported major type constants mirror the unexported ones so callers that
// inspect Item.Major can compare against named values without reaching into
// package internals via a type assertion trick.
const (
	MajorUnsignedInt = majorUnsignedInt
	MajorNegativeInt = majorNegativeInt
	MajorByteString  = majorByteString
	MajorTextString  = majorTextString
	MajorArray       = majorArray
	MajorMap         = majorMap
	MajorTag         = majorTag
	MajorSimple      = majorSimple
)
