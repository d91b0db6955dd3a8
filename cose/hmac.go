package cose

import (
	"crypto/hmac"
	"crypto/subtle"
)

// MACer is the crypto adapter's hmac_begin/update/finish operation
// (spec.md §6), producing the tag for COSE_Mac0/COSE_Mac.
type MACer interface {
	Algorithm() Algorithm
	ComputeTag(toBeMACed []byte) ([]byte, error)
}

// MACVerifier is the crypto adapter's hmac_verify operation. Comparison
// must be constant-time (spec.md §4.E, "verification is a constant-time
// MAC comparison").
type MACVerifier interface {
	Algorithm() Algorithm
	VerifyTag(toBeMACed, tag []byte) error
}

type hmacTagger struct {
	key *Key
}

// NewMACer returns a MACer for key.Algorithm() (one of the registered
// HMAC algorithms).
func NewMACer(key *Key) (MACer, error) {
	if key.symmetric == nil {
		return nil, ErrWrongTypeOfKey
	}
	if _, err := cryptoHashForAlgorithm(key.alg); err != nil {
		return nil, ErrUnsupportedHMACAlg
	}
	return &hmacTagger{key: key}, nil
}

// NewMACVerifier returns a MACVerifier for key.Algorithm().
func NewMACVerifier(key *Key) (MACVerifier, error) {
	if key.symmetric == nil {
		return nil, ErrWrongTypeOfKey
	}
	if _, err := cryptoHashForAlgorithm(key.alg); err != nil {
		return nil, ErrUnsupportedHMACAlg
	}
	return &hmacTagger{key: key}, nil
}

func (t *hmacTagger) Algorithm() Algorithm { return t.key.alg }

func (t *hmacTagger) ComputeTag(toBeMACed []byte) ([]byte, error) {
	ch, err := cryptoHashForAlgorithm(t.key.alg)
	if err != nil {
		return nil, ErrUnsupportedHMACAlg
	}
	mac := hmac.New(ch.New, t.key.symmetric)
	if _, err := mac.Write(toBeMACed); err != nil {
		return nil, errorf(CodeHMACGeneralFail, "cose: hmac write failed: %v", err)
	}
	tag := mac.Sum(nil)
	if t.key.alg == AlgorithmHMAC256_64 {
		tag = tag[:8]
	}
	return tag, nil
}

func (t *hmacTagger) VerifyTag(toBeMACed, tag []byte) error {
	computed, err := t.ComputeTag(toBeMACed)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(computed, tag) != 1 {
		return ErrHMACVerify
	}
	return nil
}
