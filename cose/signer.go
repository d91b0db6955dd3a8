package cose

import (
	"crypto/rand"
)

// Signer is the signing half of the crypto adapter's `sign` operation
// (spec.md §6). Concrete implementations are returned by NewSigner,
// selected at runtime by Algorithm per spec.md §9's "polymorphic
// signer/recipient" design note.
type Signer interface {
	Algorithm() Algorithm
	Sign(toBeSigned []byte) ([]byte, error)
}

// Verifier is the verification half, the crypto adapter's `verify`
// operation.
type Verifier interface {
	Algorithm() Algorithm
	Verify(toBeSigned, signature []byte) error
}

// NewSigner returns the concrete Signer for key.Algorithm(), or
// ErrUnsupportedSigningAlg if no adapter recognizes it.
func NewSigner(key *Key) (Signer, error) {
	if key.signer == nil {
		return nil, ErrWrongTypeOfKey
	}
	switch key.alg {
	case AlgorithmES256, AlgorithmES384, AlgorithmES512:
		return &ecdsaSigner{key: key}, nil
	case AlgorithmEdDSA:
		return &ed25519Signer{key: key}, nil
	case AlgorithmPS256, AlgorithmPS384, AlgorithmPS512, AlgorithmRS256, AlgorithmRS384, AlgorithmRS512:
		return &rsaSigner{key: key}, nil
	default:
		return nil, ErrUnsupportedSigningAlg
	}
}

// NewVerifier returns the concrete Verifier for key.Algorithm().
func NewVerifier(key *Key) (Verifier, error) {
	switch key.alg {
	case AlgorithmES256, AlgorithmES384, AlgorithmES512:
		pub, err := ecdsaPublic(key)
		if err != nil {
			return nil, err
		}
		return &ecdsaVerifier{alg: key.alg, pub: pub}, nil
	case AlgorithmEdDSA:
		pub, err := ed25519Public(key)
		if err != nil {
			return nil, err
		}
		return &ed25519Verifier{pub: pub}, nil
	case AlgorithmPS256, AlgorithmPS384, AlgorithmPS512, AlgorithmRS256, AlgorithmRS384, AlgorithmRS512:
		pub, err := rsaPublic(key)
		if err != nil {
			return nil, err
		}
		return &rsaVerifier{alg: key.alg, pub: pub}, nil
	default:
		return nil, ErrUnsupportedSigningAlg
	}
}

var cryptoRandReader = rand.Reader
