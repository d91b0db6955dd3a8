package cose

import (
	"crypto/rand"
	"crypto/rsa"
)

// rsaSigner implements Signer for PS256/384/512 (RSA-PSS, RFC 9053 §2.2)
// and RS256/384/512 (RSASSA-PKCS1-v1_5, a common non-registered extension
// several deployed profiles still rely on).
type rsaSigner struct {
	key *Key
}

func (s *rsaSigner) Algorithm() Algorithm { return s.key.alg }

func (s *rsaSigner) Sign(toBeSigned []byte) ([]byte, error) {
	priv, ok := s.key.signer.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	h, err := digest(s.key.alg, toBeSigned)
	if err != nil {
		return nil, err
	}
	ch, _ := cryptoHashForAlgorithm(s.key.alg)
	if isPSSAlgorithm(s.key.alg) {
		sig, err := rsa.SignPSS(rand.Reader, priv, ch, h, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: ch})
		if err != nil {
			return nil, errorf(CodeSigFail, "cose: rsa-pss sign failed: %v", err)
		}
		return sig, nil
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, ch, h)
	if err != nil {
		return nil, errorf(CodeSigFail, "cose: rsa sign failed: %v", err)
	}
	return sig, nil
}

type rsaVerifier struct {
	alg Algorithm
	pub *rsa.PublicKey
}

func (v *rsaVerifier) Algorithm() Algorithm { return v.alg }

func (v *rsaVerifier) Verify(toBeSigned, signature []byte) error {
	h, err := digest(v.alg, toBeSigned)
	if err != nil {
		return err
	}
	ch, _ := cryptoHashForAlgorithm(v.alg)
	if isPSSAlgorithm(v.alg) {
		if err := rsa.VerifyPSS(v.pub, ch, h, signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: ch}); err != nil {
			return ErrSigVerify
		}
		return nil
	}
	if err := rsa.VerifyPKCS1v15(v.pub, ch, h, signature); err != nil {
		return ErrSigVerify
	}
	return nil
}

func isPSSAlgorithm(alg Algorithm) bool {
	switch alg {
	case AlgorithmPS256, AlgorithmPS384, AlgorithmPS512:
		return true
	default:
		return false
	}
}
