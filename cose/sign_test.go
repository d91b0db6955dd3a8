package cose_test

import (
	"testing"

	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignMultiSignerRoundTrip covers spec.md §4.E's multi-signer flow with
// more than one COSE_Signature entry, matching against the *first* signer's
// key. SignVerify decodes every COSE_Signature before it verifies any, so
// the decoder must consume the entries after the matching one before
// exiting the array, or this fails with a CBOR decode error rather than
// succeeding.
func TestSignMultiSignerRoundTrip(t *testing.T) {
	priv1 := mustECDSAKey(t)
	priv2 := mustECDSAKey(t)

	signer1, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv1))
	require.NoError(t, err)
	signer2, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv2))
	require.NoError(t, err)

	payload := []byte("multi-signer payload")
	msg, err := cose.Sign(
		[]cose.NamedSigner{
			{Signer: signer1},
			{Signer: signer2},
		},
		cose.Headers{}, payload, nil, false,
	)
	require.NoError(t, err)

	verifier1, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, nil, &priv1.PublicKey))
	require.NoError(t, err)

	decoded, err := cose.SignVerify([]cose.NamedVerifier{{Verifier: verifier1}}, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Payload)
	assert.Len(t, decoded.Signatures, 2)
}

// TestSignMultiSignerWrongKeysFail confirms a non-matching verifier set
// fails rather than silently accepting a partially-checked message.
func TestSignMultiSignerWrongKeysFail(t *testing.T) {
	priv1 := mustECDSAKey(t)
	priv2 := mustECDSAKey(t)
	other := mustECDSAKey(t)

	signer1, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv1))
	require.NoError(t, err)
	signer2, err := cose.NewSigner(cose.NewSigningKey(cose.AlgorithmES256, nil, priv2))
	require.NoError(t, err)

	payload := []byte("multi-signer payload")
	msg, err := cose.Sign(
		[]cose.NamedSigner{
			{Signer: signer1},
			{Signer: signer2},
		},
		cose.Headers{}, payload, nil, false,
	)
	require.NoError(t, err)

	wrongVerifier, err := cose.NewVerifier(cose.NewVerificationKey(cose.AlgorithmES256, nil, &other.PublicKey))
	require.NoError(t, err)

	_, err = cose.SignVerify([]cose.NamedVerifier{{Verifier: wrongVerifier}}, msg, nil)
	assert.ErrorIs(t, err, cose.ErrSigVerify)
}
