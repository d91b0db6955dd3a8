package cose

import (
	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Signature is one element of a COSE_Sign message's signer array: a
// 3-element [protected, unprotected, signature] structure (spec.md §4.E,
// "Multi-signer/multi-recipient").
type Signature struct {
	Headers   Headers
	Signature []byte
}

// SignMessage is the decoded form of a COSE_Sign envelope: [protected,
// unprotected, payload, signatures].
type SignMessage struct {
	Headers    Headers
	Payload    []byte
	Signatures []Signature
}

// NamedSigner pairs a Signer with the per-signer headers (typically just
// its kid) that go into its COSE_Signature structure.
type NamedSigner struct {
	Signer  Signer
	Headers Headers
}

// Sign builds a COSE_Sign envelope with one COSE_Signature per signer.
// Each signer's to-be-signed bytes use the "Signature" context and include
// both the body's protected bucket and that signer's own protected bucket
// (spec.md §4.E: "include both body-protected and signer/recipient-
// protected buckets").
func Sign(signers []NamedSigner, headers Headers, payload []byte, externalAAD []byte, omitTag bool) ([]byte, error) {
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}
	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 512+len(payload)))
	if !omitTag {
		enc.AddTagNumber(CBORTagSign)
	}
	enc.OpenArray()
	bodyProtected, err := writeOuterHeaders(enc, &headers)
	if err != nil {
		return nil, err
	}
	enc.AddBytes(payload)

	enc.OpenArray()
	for i := range signers {
		ns := &signers[i]
		if ns.Headers.Protected == nil {
			crit := ns.Headers.Crit
			ns.Headers = newHeaders()
			ns.Headers.Crit = crit
		}
		ns.Headers.setProtectedInt(HeaderLabelAlgorithm, int64(ns.Signer.Algorithm()))

		enc.OpenArray()
		signerProtected, err := writeOuterHeaders(enc, &ns.Headers)
		if err != nil {
			return nil, err
		}
		toBeSigned, err := buildToBeStruct(contextSignature, bodyProtected, signerProtected, externalAAD, payload)
		if err != nil {
			return nil, err
		}
		sig, err := ns.Signer.Sign(toBeSigned)
		if err != nil {
			return nil, errorf(CodeSigFail, "cose: sign: %v", err)
		}
		enc.AddBytes(sig)
		enc.CloseArray()
	}
	enc.CloseArray()
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// NamedVerifier pairs a Verifier with the kid it should be tried against;
// an empty kid matches any signature.
type NamedVerifier struct {
	Verifier Verifier
	KeyID    []byte
}

// SignVerify parses a COSE_Sign envelope and succeeds on the first
// signature that one of the verifiers accepts. Signatures are tried in
// order; a verifier is tried against a signature when its kid equals the
// signature's kid or when it has no kid configured (no algorithm check is
// made). If no verifier's kid matches any signature the result is
// ErrKIDUnmatched, per spec.md §4.E's multi-signer decode flow generalized
// from Sign1.
func SignVerify(verifiers []NamedVerifier, coseMessage []byte, externalAAD []byte) (*SignMessage, error) {
	if len(verifiers) == 0 {
		return nil, ErrNoVerifiers
	}
	dec := qcbor.NewDecoder(coseMessage)
	arr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagSign); err != nil {
		return nil, err
	}
	if arr.Count != 4 {
		return nil, ErrSignatureFormat
	}

	headers, err := decodeOuterHeaders(dec)
	if err != nil {
		return nil, err
	}
	payload, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}

	sigsArr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	sigs := make([]Signature, 0, sigsArr.Count)
	toBeSigneds := make([][]byte, 0, sigsArr.Count)
	for i := uint64(0); i < sigsArr.Count; i++ {
		sigArr, err := dec.EnterArray()
		if err != nil {
			return nil, fromQCBORDecode(err)
		}
		if sigArr.Count != 3 {
			return nil, ErrSignatureFormat
		}
		signerHeaders, err := decodeOuterHeaders(dec)
		if err != nil {
			return nil, err
		}
		sigBytes, err := dec.GetBytes()
		if err != nil {
			return nil, fromQCBORDecode(err)
		}
		if err := dec.ExitArray(); err != nil {
			return nil, fromQCBORDecode(err)
		}

		toBeSigned, err := buildToBeStruct(contextSignature, headers.ProtectedBytes, signerHeaders.ProtectedBytes, externalAAD, payload)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, Signature{Headers: *signerHeaders, Signature: sigBytes})
		toBeSigneds = append(toBeSigneds, toBeSigned)
	}
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, fromQCBORDecode(err)
	}

	// All signatures are fully decoded before any verification runs, so a
	// match on an early signature doesn't leave later COSE_Signature
	// entries unread on the decoder.
	var verifyErr error = ErrKIDUnmatched
	for i := range sigs {
		kid, _ := sigs[i].Headers.KeyID()
		matched := false
		for _, v := range verifiers {
			if len(v.KeyID) > 0 && string(v.KeyID) != string(kid) {
				continue
			}
			if err := v.Verifier.Verify(toBeSigneds[i], sigs[i].Signature); err == nil {
				matched = true
				break
			}
			verifyErr = ErrSigVerify
		}
		if matched {
			verifyErr = nil
			break
		}
	}
	if verifyErr != nil {
		return nil, verifyErr
	}

	return &SignMessage{Headers: *headers, Payload: payload, Signatures: sigs}, nil
}
