package cose_test

import (
	"testing"

	"github.com/laurencelundblade/qcbor-go/cose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncrypt0RoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	iv := make([]byte, 12)
	for i := range iv {
		iv[i] = byte(i)
	}

	k := cose.NewSymmetricKey(cose.AlgorithmA128GCM, nil, key)

	msg, err := cose.Encrypt0(k, cose.Headers{}, iv, []byte("secret"), cose.Encrypt0Options{})
	require.NoError(t, err)

	decodedMsg, plaintext, err := cose.Encrypt0Decrypt(k, msg, cose.Encrypt0Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), plaintext)
	alg, ok := decodedMsg.Headers.Algorithm()
	assert.True(t, ok)
	assert.Equal(t, cose.AlgorithmA128GCM, alg)
}

func TestEncrypt0TamperedCiphertextFailsDecrypt(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	iv := make([]byte, 12)

	k := cose.NewSymmetricKey(cose.AlgorithmA256GCM, nil, key)
	msg, err := cose.Encrypt0(k, cose.Headers{}, iv, []byte("secret payload"), cose.Encrypt0Options{})
	require.NoError(t, err)

	tampered := append([]byte{}, msg...)
	tampered[len(tampered)-1] ^= 0xFF

	_, _, err = cose.Encrypt0Decrypt(k, tampered, cose.Encrypt0Options{})
	assert.ErrorIs(t, err, cose.ErrDecryptFail)
}
