package cose

import "crypto/sha256"

// shortCircuitSign implements spec.md §4.E's test-only short-circuit
// signature: a deterministic, non-secret function of the to-be-signed
// bytes, used to exercise COSE plumbing without a real key. It must never
// be mistaken for a real signature; verifyShortCircuit recomputes it the
// same way rather than invoking a Verifier.
func shortCircuitSign(toBeSigned []byte) []byte {
	h1 := sha256.Sum256(toBeSigned)
	h2 := sha256.Sum256(h1[:])
	return append(append([]byte{}, h1[:]...), h2[:]...)
}

func verifyShortCircuit(toBeSigned, signature []byte) bool {
	expected := shortCircuitSign(toBeSigned)
	if len(signature) != len(expected) {
		return false
	}
	for i := range expected {
		if expected[i] != signature[i] {
			return false
		}
	}
	return true
}
