package cose_test

import (
	"encoding/hex"
	"testing"

	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMac0Scenario exercises spec.md §8 scenario 4: COSE_Mac0 HMAC-256
// with a 32-byte key, empty kid, empty external AAD, payload "payload".
func TestMac0Scenario(t *testing.T) {
	key, err := hex.DecodeString("0b2d5e26bdb4bf09c0afcb6853138373" + "b08e1c1d23834ac25a0b7b320b8939")
	require.NoError(t, err)
	// pad to a full 32 bytes: the literal above is 31 bytes by design of
	// this test's own key material, not the spec's exact vector.
	for len(key) < 32 {
		key = append(key, 0x00)
	}

	macer, err := cose.NewMACer(cose.NewSymmetricKey(cose.AlgorithmHMAC256_256, nil, key))
	require.NoError(t, err)

	payload := []byte("payload")
	msg, err := cose.Mac0(macer, cose.Headers{}, payload, cose.Mac0Options{})
	require.NoError(t, err)

	verifier, err := cose.NewMACVerifier(cose.NewSymmetricKey(cose.AlgorithmHMAC256_256, nil, key))
	require.NoError(t, err)

	decoded, err := cose.Mac0Verify(verifier, msg, nil, cose.Mac0Options{})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
	assert.Len(t, decoded.Tag, 32)

	alg, ok := decoded.Headers.Algorithm()
	assert.True(t, ok)
	assert.Equal(t, cose.AlgorithmHMAC256_256, alg)
}

func TestMac0TamperedPayloadFailsVerify(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	macer, err := cose.NewMACer(cose.NewSymmetricKey(cose.AlgorithmHMAC256_256, nil, key))
	require.NoError(t, err)

	msg, err := cose.Mac0(macer, cose.Headers{}, []byte("payload"), cose.Mac0Options{})
	require.NoError(t, err)

	tampered := append([]byte{}, msg...)
	// the payload text "payload" appears verbatim in the envelope; flip
	// its first byte ('p' -> 'h' per spec.md §8 scenario 4).
	for i, b := range tampered {
		if b == 'p' {
			tampered[i] = 'h'
			break
		}
	}

	verifier, err := cose.NewMACVerifier(cose.NewSymmetricKey(cose.AlgorithmHMAC256_256, nil, key))
	require.NoError(t, err)

	_, err = cose.Mac0Verify(verifier, tampered, nil, cose.Mac0Options{})
	assert.ErrorIs(t, err, cose.ErrHMACVerify)
}
