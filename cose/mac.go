package cose

import (
	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// MacMessage is the decoded form of a COSE_Mac envelope: [protected,
// unprotected, payload, tag, recipients].
type MacMessage struct {
	Headers    Headers
	Payload    []byte
	Tag        []byte
	Recipients int // not set by MacVerify; stays zero
}

// Mac builds a COSE_Mac envelope: like Mac0 but the content-authentication
// key is distributed to one or more Recipients rather than being the
// caller's key directly, per spec.md §4.E's generalization of Mac0 to
// COSE_Mac.
func Mac(macer MACer, contentKey []byte, recipients []Recipient, headers Headers, payload []byte, externalAAD []byte, omitTag bool) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrRecipientCannotBeAdded
	}
	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	headers.setProtectedInt(HeaderLabelAlgorithm, int64(macer.Algorithm()))
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 512+len(payload)))
	if !omitTag {
		enc.AddTagNumber(CBORTagMac)
	}
	enc.OpenArray()
	protectedBytes, err := writeOuterHeaders(enc, &headers)
	if err != nil {
		return nil, err
	}
	enc.AddBytes(payload)

	toBeMACed, err := buildToBeStruct(contextMac, protectedBytes, nil, externalAAD, payload)
	if err != nil {
		return nil, err
	}
	tag, err := macer.ComputeTag(toBeMACed)
	if err != nil {
		return nil, errorf(CodeHMACGeneralFail, "cose: mac: %v", err)
	}
	enc.AddBytes(tag)

	if err := writeRecipientsArray(enc, recipients, contentKey); err != nil {
		return nil, err
	}
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// MacVerify parses a COSE_Mac envelope, recovers the content-authentication
// key through whichever recipient matches one of the caller's Recipients,
// builds a MACVerifier for it, and checks the tag.
func MacVerify(recipients []Recipient, newVerifier func(contentKey []byte, alg Algorithm) (MACVerifier, error), coseMessage []byte, externalAAD []byte) (*MacMessage, error) {
	dec := qcbor.NewDecoder(coseMessage)
	arr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagMac); err != nil {
		return nil, err
	}
	if arr.Count != 5 {
		return nil, ErrMac0Format
	}

	headers, err := decodeOuterHeaders(dec)
	if err != nil {
		return nil, err
	}
	payload, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	tag, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}

	contentKey, recErr := readRecipientsArray(dec, recipients)
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if recErr != nil {
		return nil, errorf(CodeRecipientFormat, "cose: mac: no recipient could be unwrapped: %v", recErr)
	}

	alg, ok := headers.Algorithm()
	if !ok {
		return nil, ErrNoAlgID
	}
	verifier, err := newVerifier(contentKey, alg)
	if err != nil {
		return nil, err
	}

	toBeMACed, err := buildToBeStruct(contextMac, headers.ProtectedBytes, nil, externalAAD, payload)
	if err != nil {
		return nil, err
	}
	if err := verifier.VerifyTag(toBeMACed, tag); err != nil {
		return nil, ErrHMACVerify
	}

	return &MacMessage{Headers: *headers, Payload: payload, Tag: tag}, nil
}
