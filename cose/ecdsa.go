package cose

import (
	"crypto/ecdsa"
	"math/big"
)

// ecdsaSigner implements Signer for ES256/ES384/ES512 by hashing the
// to-be-signed bytes and producing the IEEE P1363 fixed-width R||S
// signature RFC 9053 §2.1 mandates (not ASN.1 DER, which is what
// crypto/ecdsa.Sign returns natively).
type ecdsaSigner struct {
	key *Key
}

func (s *ecdsaSigner) Algorithm() Algorithm { return s.key.alg }

func (s *ecdsaSigner) Sign(toBeSigned []byte) ([]byte, error) {
	priv, ok := s.key.signer.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	h, err := digest(s.key.alg, toBeSigned)
	if err != nil {
		return nil, err
	}
	r, sVal, err := ecdsa.Sign(cryptoRandReader, priv, h)
	if err != nil {
		return nil, errorf(CodeSigFail, "cose: ecdsa sign failed: %v", err)
	}
	size := curveByteSize(priv.Curve.Params().BitSize)
	return append(leftPad(r.Bytes(), size), leftPad(sVal.Bytes(), size)...), nil
}

type ecdsaVerifier struct {
	alg Algorithm
	pub *ecdsa.PublicKey
}

func (v *ecdsaVerifier) Algorithm() Algorithm { return v.alg }

func (v *ecdsaVerifier) Verify(toBeSigned, signature []byte) error {
	size := curveByteSize(v.pub.Curve.Params().BitSize)
	if len(signature) != 2*size {
		return ErrSigVerify
	}
	h, err := digest(v.alg, toBeSigned)
	if err != nil {
		return err
	}
	r := new(big.Int).SetBytes(signature[:size])
	sVal := new(big.Int).SetBytes(signature[size:])
	if !ecdsa.Verify(v.pub, h, r, sVal) {
		return ErrSigVerify
	}
	return nil
}

func curveByteSize(bitSize int) int {
	return (bitSize + 7) / 8
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
