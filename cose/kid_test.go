package cose_test

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newKID returns a fresh random key identifier, the same role
// github.com/google/uuid plays for the dc4eu-vc and ubirch-cose-client
// examples in the retrieval pack: a collision-resistant label for a key
// without encoding any meaning into its bytes.
func newKID(t *testing.T) []byte {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return []byte(id.String())
}

func TestECDHESRecipientRoundTrip(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	kid := newKID(t)

	sender, err := cose.NewECDHRecipient(cose.NewECDHPublicKey(cose.AlgorithmECDHESA128KW, kid, priv.PublicKey()))
	require.NoError(t, err)
	receiver, err := cose.NewECDHRecipient(cose.NewECDHPrivateKey(cose.AlgorithmECDHESA128KW, kid, priv))
	require.NoError(t, err)

	cek := make([]byte, 16)
	_, err = rand.Read(cek)
	require.NoError(t, err)

	wrapped, err := sender.WrapKey(cek)
	require.NoError(t, err)

	unwrapped, err := receiver.UnwrapKey(wrapped)
	require.NoError(t, err)
	assert.Equal(t, cek, unwrapped)
}

func TestEncryptWithECDHESRecipient(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	kid := newKID(t)

	sender, err := cose.NewECDHRecipient(cose.NewECDHPublicKey(cose.AlgorithmECDHESA128KW, kid, priv.PublicKey()))
	require.NoError(t, err)
	receiver, err := cose.NewECDHRecipient(cose.NewECDHPrivateKey(cose.AlgorithmECDHESA128KW, kid, priv))
	require.NoError(t, err)

	plaintext := []byte("multi-recipient plaintext")
	msg, err := cose.Encrypt(cose.AlgorithmA128GCM, []cose.Recipient{sender}, cose.Headers{}, plaintext, nil, false)
	require.NoError(t, err)

	_, decrypted, err := cose.EncryptDecrypt([]cose.Recipient{receiver}, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

// TestECDHESRecipientWrongKeyFails confirms a receiver with a different
// static key pair cannot recover the content-encryption key: ECDH
// disagreement must fail the AES key-unwrap integrity check, not silently
// return the wrong key.
func TestECDHESRecipientWrongKeyFails(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	other, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	kid := newKID(t)

	sender, err := cose.NewECDHRecipient(cose.NewECDHPublicKey(cose.AlgorithmECDHESA128KW, kid, priv.PublicKey()))
	require.NoError(t, err)
	wrongReceiver, err := cose.NewECDHRecipient(cose.NewECDHPrivateKey(cose.AlgorithmECDHESA128KW, kid, other))
	require.NoError(t, err)

	cek := make([]byte, 16)
	_, err = rand.Read(cek)
	require.NoError(t, err)

	wrapped, err := sender.WrapKey(cek)
	require.NoError(t, err)

	_, err = wrongReceiver.UnwrapKey(wrapped)
	assert.ErrorIs(t, err, cose.ErrKWFailed)
}
