package cose

import "github.com/laurencelundblade/qcbor-go/qcbor"

// cwtTagPrefix is the fixed 2-byte encoding of CBOR tag 61 (0xD8 0x3D:
// major type 6, 1-byte argument 61), per RFC 8949 §3's head encoding.
var cwtTagPrefix = []byte{0xD8, 0x3D}

// WrapCWT prepends CBOR tag 61 (self-described CWT, spec.md §6) to an
// already-encoded COSE message, as used when a CBOR Web Token carries its
// COSE envelope as its outermost structure rather than as a claim.
func WrapCWT(coseMessage []byte) ([]byte, error) {
	enc := qcbor.NewEncoder(make([]byte, 0, len(coseMessage)+2))
	enc.AddTagNumber(CBORTagCWT)
	enc.AddEncoded(coseMessage)
	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// UnwrapCWT strips a leading CBOR tag 61 from data, returning the
// remaining bytes (the COSE envelope) unchanged if no such tag is present.
func UnwrapCWT(data []byte) ([]byte, error) {
	if len(data) >= 2 && data[0] == cwtTagPrefix[0] && data[1] == cwtTagPrefix[1] {
		return data[2:], nil
	}
	return data, nil
}
