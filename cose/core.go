// Package cose implements RFC 9052 COSE_Sign1/Sign, COSE_Mac0/Mac and
// COSE_Encrypt0/Encrypt envelopes on top of the qcbor package's byte-exact
// encoder and decoder (spec.md §1 component E, "COSE Builder/Verifier").
package cose

import (
	"errors"

	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Context strings for the to-be-signed/MACed/encrypted structures, RFC
// 9052 §4.4/§6.3/§5.3.
const (
	contextSignature1    = "Signature1"
	contextSignature     = "Signature"
	contextMac0          = "MAC0"
	contextMac           = "MAC"
	contextEncrypt0      = "Encrypt0"
	contextEncrypt       = "Encrypt"
	contextEncRecipient  = "Enc_Recipient"
	contextCounterSignature = "CounterSignature"
)

// CBOR tag numbers for COSE message types, spec.md §6.
const (
	CBORTagSign1    = 18
	CBORTagSign     = 98
	CBORTagMac0     = 17
	CBORTagMac      = 97
	CBORTagEncrypt0 = 16
	CBORTagEncrypt  = 96
	CBORTagCWT      = 61
)

func isBufferTooSmall(err error) bool {
	return errors.Is(err, qcbor.ErrBufferTooSmall)
}

// buildToBeStruct builds the byte-exact array described by spec.md §3,
// "To-be-signed / To-be-MACed structure": [context, protected-bstr,
// external-aad-bstr, payload-bstr], optionally with one extra bstr element
// inserted before external-aad-bstr for the multi-signer "Signature"
// context (signerProtected).
func buildToBeStruct(context string, bodyProtected, signerProtected, externalAAD, payload []byte) ([]byte, error) {
	enc := qcbor.NewEncoder(make([]byte, 0, 64+len(bodyProtected)+len(signerProtected)+len(externalAAD)+len(payload)))
	enc.OpenArray()
	enc.AddText(context)
	enc.AddBytes(bodyProtected)
	if signerProtected != nil {
		enc.AddBytes(signerProtected)
	}
	enc.AddBytes(externalAAD)
	enc.AddBytes(payload)
	enc.CloseArray()
	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// buildEncStructure builds the Enc_structure of spec.md §3 / §4.E
// ("Encrypt0 flow"): [context, protected-bstr, external-aad-bstr]. It
// serves as AEAD associated data, not as input to a hash.
func buildEncStructure(context string, protected, externalAAD []byte) ([]byte, error) {
	enc := qcbor.NewEncoder(make([]byte, 0, 32+len(protected)+len(externalAAD)))
	enc.OpenArray()
	enc.AddText(context)
	enc.AddBytes(protected)
	enc.AddBytes(externalAAD)
	enc.CloseArray()
	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// writeOuterHeaders writes the protected-as-bstr then the unprotected map,
// the two fixed first elements of every single-recipient COSE message body
// (spec.md §4.E steps 4-5), returning the encoded protected bytes for
// later use building the to-be-* structure.
func writeOuterHeaders(enc *qcbor.Encoder, h *Headers) ([]byte, error) {
	protected, err := encodeProtected(h)
	if err != nil {
		return nil, err
	}
	enc.AddBytes(protected)
	writeUnprotected(enc, h.Unprotected)
	return protected, nil
}

// decodeOuterHeaders reads the protected-as-bstr then the unprotected map,
// performing the duplicate-label and crit checks of spec.md §4.E.
func decodeOuterHeaders(dec *qcbor.Decoder) (*Headers, error) {
	h := newHeaders()

	protectedBytes, err := dec.GetBytes()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	h.ProtectedBytes = protectedBytes
	if len(protectedBytes) > 0 {
		inner := qcbor.NewDecoder(protectedBytes)
		if err := decodeHeaderMapInto(inner, h.Protected, &h.Crit); err != nil {
			return nil, fromQCBORDecode(err)
		}
		if err := inner.Finish(); err != nil {
			return nil, fromQCBORDecode(err)
		}
	}

	var unprotectedCrit []int64
	if err := decodeHeaderMapInto(dec, h.Unprotected, &unprotectedCrit); err != nil {
		return nil, fromQCBORDecode(err)
	}
	if len(unprotectedCrit) > 0 {
		return nil, ErrCritInUnprotected
	}

	if err := h.checkDuplicates(); err != nil {
		return nil, err
	}
	if err := h.checkCrit(nil); err != nil {
		return nil, err
	}
	return &h, nil
}

// wellKnownShortCircuitKID is the kid that activates the deterministic,
// non-secret short-circuit signature, spec.md §4.E ("Short-circuit
// signatures"). It must never be treated as a real key.
var wellKnownShortCircuitKID = []byte("short-circuit-signing-key")
