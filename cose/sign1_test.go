package cose_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustECDSAKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return priv
}

func TestSign1RoundTrip(t *testing.T) {
	priv := mustECDSAKey(t)
	kid := []byte("kid-1")

	signer, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, kid, priv))
	require.NoError(t, err)

	payload := []byte("payload")
	msg, err := cose.Sign1(signer, cose.Headers{}, payload, cose.Sign1Options{})
	require.NoError(t, err)

	verifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, kid, &priv.PublicKey))
	require.NoError(t, err)

	decoded, err := cose.Sign1Verify(verifier, msg, nil, cose.Sign1Options{})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)

	alg, ok := decoded.Headers.Algorithm()
	assert.True(t, ok)
	assert.Equal(t, cose.AlgorithmES256, alg)
}

func TestSign1TamperedPayloadFailsVerify(t *testing.T) {
	priv := mustECDSAKey(t)
	signer, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv))
	require.NoError(t, err)

	msg, err := cose.Sign1(signer, cose.Headers{}, []byte("payload"), cose.Sign1Options{})
	require.NoError(t, err)

	// Flip a byte well inside the message. The ES256 signature is the last
	// 64 bytes, so 40 bytes from the end lands inside the signature.
	tampered := append([]byte{}, msg...)
	tampered[len(tampered)-40] ^= 0xFF

	verifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, nil, &priv.PublicKey))
	require.NoError(t, err)

	_, err = cose.Sign1Verify(verifier, tampered, nil, cose.Sign1Options{})
	assert.Error(t, err)
}

// TestSign1CriticalParameterRoundTrip exercises a protected "crit" parameter
// (spec.md §4.E, "Critical parameters"): the decoder must fully exit the
// crit array's frame before exiting the enclosing protected header map, or
// this fails to decode the package's own output.
func TestSign1CriticalParameterRoundTrip(t *testing.T) {
	priv := mustECDSAKey(t)
	signer, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv))
	require.NoError(t, err)

	headers := cose.Headers{}
	headers.SetCritical(cose.HeaderLabelAlgorithm)

	payload := []byte("payload")
	msg, err := cose.Sign1(signer, headers, payload, cose.Sign1Options{})
	require.NoError(t, err)

	verifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, nil, &priv.PublicKey))
	require.NoError(t, err)

	decoded, err := cose.Sign1Verify(verifier, msg, nil, cose.Sign1Options{})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
	assert.Equal(t, []int64{cose.HeaderLabelAlgorithm}, decoded.Headers.Crit)
}

func TestSign1DetachedPayload(t *testing.T) {
	priv := mustECDSAKey(t)
	signer, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv))
	require.NoError(t, err)

	payload := []byte("detached payload")
	msg, err := cose.Sign1(signer, cose.Headers{}, payload, cose.Sign1Options{Detached: true})
	require.NoError(t, err)

	verifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, nil, &priv.PublicKey))
	require.NoError(t, err)

	decoded, err := cose.Sign1Verify(verifier, msg, payload, cose.Sign1Options{Detached: true})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
}

func TestSign1ShortCircuit(t *testing.T) {
	payload := []byte("payload")
	// short-circuit signing never uses key material; build a throwaway
	// ECDSA signer/verifier pair purely to satisfy the interface shape.
	priv := mustECDSAKey(t)
	signer, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, shortCircuitKID(), priv))
	require.NoError(t, err)

	msg, err := cose.Sign1(signer, cose.Headers{}, payload, cose.Sign1Options{AllowShortCircuit: true})
	require.NoError(t, err)

	verifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, shortCircuitKID(), &priv.PublicKey))
	require.NoError(t, err)
	decoded, err := cose.Sign1Verify(verifier, msg, nil, cose.Sign1Options{AllowShortCircuit: true})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
}

func shortCircuitKID() []byte {
	return []byte("short-circuit-signing-key")
}
