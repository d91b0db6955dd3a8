package cose

import (
	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Mac0Message is the decoded form of a COSE_Mac0 envelope: [protected,
// unprotected, payload, tag]. Structurally identical to Sign1Message but
// the fourth element is a MAC tag, not a signature (spec.md §4.E, "MAC
// (MAC0) flow").
type Mac0Message struct {
	Headers Headers
	Payload []byte
	Tag     []byte
}

// Mac0Options configures Mac0 encode/decode, analogous to Sign1Options.
type Mac0Options struct {
	OmitTag     bool
	Detached    bool
	ExternalAAD []byte
}

// Mac0 builds a complete COSE_Mac0 envelope: sets headers.Protected[1] to
// macer.Algorithm(), computes MAC_structure (context "MAC0") and calls
// macer.ComputeTag.
func Mac0(macer MACer, headers Headers, payload []byte, opts Mac0Options) ([]byte, error) {
	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	headers.setProtectedInt(HeaderLabelAlgorithm, int64(macer.Algorithm()))
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 256+len(payload)))
	if !opts.OmitTag {
		enc.AddTagNumber(CBORTagMac0)
	}
	enc.OpenArray()
	protectedBytes, err := writeOuterHeaders(enc, &headers)
	if err != nil {
		return nil, err
	}

	if opts.Detached {
		enc.AddNull()
	} else {
		enc.AddBytes(payload)
	}

	toBeMACed, err := buildToBeStruct(contextMac0, protectedBytes, nil, opts.ExternalAAD, payload)
	if err != nil {
		return nil, err
	}
	tag, err := macer.ComputeTag(toBeMACed)
	if err != nil {
		return nil, errorf(CodeHMACGeneralFail, "cose: mac0: %v", err)
	}
	enc.AddBytes(tag)
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// Mac0Verify parses and verifies a COSE_Mac0 envelope, returning the
// payload on a matching tag.
func Mac0Verify(verifier MACVerifier, coseMessage []byte, detachedPayload []byte, opts Mac0Options) (*Mac0Message, error) {
	dec := qcbor.NewDecoder(coseMessage)

	arr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagMac0); err != nil {
		return nil, err
	}
	if arr.Count != 4 {
		return nil, ErrMac0Format
	}

	headers, err := decodeOuterHeaders(dec)
	if err != nil {
		return nil, err
	}

	payloadItem, err := dec.GetNext()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	var payload []byte
	switch payloadItem.Type {
	case qcbor.TypeNull:
		payload = detachedPayload
	case qcbor.TypeByteString:
		payload = payloadItem.Bytes
	default:
		return nil, ErrMac0Format
	}

	tag, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, fromQCBORDecode(err)
	}

	toBeMACed, err := buildToBeStruct(contextMac0, headers.ProtectedBytes, nil, opts.ExternalAAD, payload)
	if err != nil {
		return nil, err
	}
	if err := verifier.VerifyTag(toBeMACed, tag); err != nil {
		return nil, ErrHMACVerify
	}

	return &Mac0Message{Headers: *headers, Payload: payload, Tag: tag}, nil
}
