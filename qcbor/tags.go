package qcbor

// Tag numbers for CBOR tag content formats named in spec.md §6. These are
// generic RFC 8949 / IANA "CBOR Tags" registry values; COSE-specific tag
// numbers (Sign1, Mac0, ...) live in package cose.
const (
	TagDateString       = 0 // RFC 3339 date/time text string
	TagEpochSeconds     = 1 // numeric epoch-based date/time
	TagPositiveBignum   = 2 // big-endian unsigned big number
	TagNegativeBignum   = 3 // big-endian big number, value = -1-n
	TagDecimalFraction  = 4 // [exponent, mantissa]
	TagBigFloat         = 5 // [exponent, mantissa], mantissa*2^exponent
	TagBase64URLHint    = 21
	TagBase64Hint       = 22
	TagBase16Hint       = 23
	TagEncodedCBOR      = 24 // byte string containing embedded CBOR
	TagURI              = 32
	TagBase64URL        = 33
	TagBase64           = 34
	TagRegex            = 35
	TagMIME             = 36
	TagUUID             = 37 // binary UUID
	TagMIMEAlt          = 257
	TagEpochDays        = 100
	TagDateOnlyString   = 1004
	TagSelfDescribedCBOR = 55799
)
