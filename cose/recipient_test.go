package cose_test

import (
	"encoding/hex"
	"testing"

	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAESKWRecipientRoundTrip exercises the RFC 3394 test vector (128-bit
// KEK wrapping a 128-bit key), confirming aesKeyWrap/aesKeyUnwrap against
// the standard before trusting them inside a COSE envelope.
func TestAESKWRecipientRoundTrip(t *testing.T) {
	kek, err := hex.DecodeString("000102030405060708090A0B0C0D0E0F")
	require.NoError(t, err)
	cek, err := hex.DecodeString("00112233445566778899AABBCCDDEEFF")
	require.NoError(t, err)

	rec, err := cose.NewAESKWRecipient(cose.NewSymmetricKey(cose.AlgorithmA128KW, []byte("kek-1"), kek))
	require.NoError(t, err)

	wrapped, err := rec.WrapKey(cek)
	require.NoError(t, err)
	assert.Len(t, wrapped, len(cek)+8)
	assert.Equal(t, "1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5", hex.EncodeToString(wrapped))

	unwrapped, err := rec.UnwrapKey(wrapped)
	require.NoError(t, err)
	assert.Equal(t, cek, unwrapped)
}

func TestAESKWRecipientRejectsWrongKeySize(t *testing.T) {
	_, err := cose.NewAESKWRecipient(cose.NewSymmetricKey(cose.AlgorithmA128KW, nil, make([]byte, 10)))
	assert.ErrorIs(t, err, cose.ErrUnsupportedKeyLength)
}

func TestDirectRecipientUnwrapsToItsOwnKey(t *testing.T) {
	key := []byte("0123456789abcdef")
	rec := cose.NewDirectRecipient(cose.NewSymmetricKey(cose.AlgorithmDirect, nil, key))
	wrapped, err := rec.WrapKey(key)
	require.NoError(t, err)
	assert.Empty(t, wrapped)

	unwrapped, err := rec.UnwrapKey(wrapped)
	require.NoError(t, err)
	assert.Equal(t, key, unwrapped)
}
