package cose

import (
	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Sign1Message is the decoded form of a COSE_Sign1 envelope (spec.md §3,
// "COSE message", single-recipient variant): [protected, unprotected,
// payload, signature].
type Sign1Message struct {
	Headers   Headers
	Payload   []byte // nil means detached (encoded/decoded as CBOR null)
	Signature []byte
}

// Sign1Options configures Sign1 encode, mirroring the signer-context
// option flags of spec.md §4.E step 1.
type Sign1Options struct {
	// OmitTag skips the CBORTagSign1 tag number wrapping the envelope.
	OmitTag bool
	// Detached indicates the Payload is supplied out-of-band and is not
	// included in the encoded envelope (a CBOR null stands in for it).
	Detached bool
	// ExternalAAD is mixed into the Sig_structure but never transmitted.
	ExternalAAD []byte
	// AllowShortCircuit opts into accepting/producing the test-only
	// short-circuit signature when the kid in the message headers is the
	// well-known one; the kid of the signer's or verifier's Key is not
	// consulted.
	AllowShortCircuit bool
}

// Sign1 builds a complete COSE_Sign1 envelope: it sets headers.Protected[1]
// to signer.Algorithm(), computes Sig_structure1 and calls signer.Sign,
// following spec.md §4.E's "Encoder flow" for Sign1.
func Sign1(signer Signer, headers Headers, payload []byte, opts Sign1Options) ([]byte, error) {
	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	headers.setProtectedInt(HeaderLabelAlgorithm, int64(signer.Algorithm()))
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 256+len(payload)))
	if !opts.OmitTag {
		enc.AddTagNumber(CBORTagSign1)
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

	toBeSigned, err := buildToBeStruct(contextSignature1, protectedBytes, nil, opts.ExternalAAD, payload)
	if err != nil {
		return nil, err
	}

	var sig []byte
	if opts.AllowShortCircuit && kidIsShortCircuit(&headers) {
		sig = shortCircuitSign(toBeSigned)
	} else {
		sig, err = signer.Sign(toBeSigned)
		if err != nil {
			return nil, errorf(CodeSigFail, "cose: sign1: %v", err)
		}
	}
	enc.AddBytes(sig)
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// Sign1Verify parses and verifies a COSE_Sign1 envelope per spec.md §4.E's
// "Decoder/Verifier flow". detachedPayload must be supplied when the
// envelope carries a detached (null) payload; it is ignored otherwise.
func Sign1Verify(verifier Verifier, coseMessage []byte, detachedPayload []byte, opts Sign1Options) (*Sign1Message, error) {
	dec := qcbor.NewDecoder(coseMessage)

	arr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagSign1); err != nil {
		return nil, err
	}
	if arr.Count != 4 {
		return nil, ErrSign1Format
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
		return nil, ErrSign1Format
	}

	signature, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, fromQCBORDecode(err)
	}

	toBeSigned, err := buildToBeStruct(contextSignature1, headers.ProtectedBytes, nil, opts.ExternalAAD, payload)
	if err != nil {
		return nil, err
	}

	if opts.AllowShortCircuit && kidIsShortCircuit(headers) {
		if !verifyShortCircuit(toBeSigned, signature) {
			return nil, ErrSigVerify
		}
	} else {
		if err := verifier.Verify(toBeSigned, signature); err != nil {
			return nil, ErrSigVerify
		}
	}

	return &Sign1Message{Headers: *headers, Payload: payload, Signature: signature}, nil
}

// checkMessageTag implements spec.md §4.E step 1: a message carrying the
// wrong CBOR tag number is rejected; an absent tag is always accepted
// (callers who need TAG_REQUIRED semantics check len(tags) themselves).
func checkMessageTag(tags []uint64, want uint64) error {
	if len(tags) == 0 {
		return nil
	}
	if len(tags) != 1 || tags[0] != want {
		return ErrIncorrectlyTagged
	}
	return nil
}

func kidIsShortCircuit(h *Headers) bool {
	kid, ok := h.KeyID()
	return ok && string(kid) == string(wellKnownShortCircuitKID)
}
