package cose

import "crypto/ed25519"

// ed25519Signer implements Signer for EdDSA (Ed25519 only; RFC 9053 does
// not register Ed448 in the core algorithm table this package targets).
type ed25519Signer struct {
	key *Key
}

func (s *ed25519Signer) Algorithm() Algorithm { return AlgorithmEdDSA }

func (s *ed25519Signer) Sign(toBeSigned []byte) ([]byte, error) {
	priv, ok := s.key.signer.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	return ed25519.Sign(priv, toBeSigned), nil
}

type ed25519Verifier struct {
	pub ed25519.PublicKey
}

func (v *ed25519Verifier) Algorithm() Algorithm { return AlgorithmEdDSA }

func (v *ed25519Verifier) Verify(toBeSigned, signature []byte) error {
	if !ed25519.Verify(v.pub, toBeSigned, signature) {
		return ErrSigVerify
	}
	return nil
}
