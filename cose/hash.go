package cose

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// cryptoHashForAlgorithm maps a COSE algorithm to the crypto.Hash it signs
// over, per RFC 9053's algorithm table.
func cryptoHashForAlgorithm(alg Algorithm) (crypto.Hash, error) {
	switch alg {
	case AlgorithmES256, AlgorithmPS256, AlgorithmRS256, AlgorithmHMAC256_64, AlgorithmHMAC256_256:
		return crypto.SHA256, nil
	case AlgorithmES384, AlgorithmPS384, AlgorithmRS384, AlgorithmHMAC384_384:
		return crypto.SHA384, nil
	case AlgorithmES512, AlgorithmPS512, AlgorithmRS512, AlgorithmHMAC512_512:
		return crypto.SHA512, nil
	default:
		return 0, ErrUnsupportedHash
	}
}

func newHashForAlgorithm(alg Algorithm) (hash.Hash, error) {
	h, err := cryptoHashForAlgorithm(alg)
	if err != nil {
		return nil, err
	}
	switch h {
	case crypto.SHA256:
		return sha256.New(), nil
	case crypto.SHA384:
		return sha512.New384(), nil
	case crypto.SHA512:
		return sha512.New(), nil
	default:
		return nil, ErrUnsupportedHash
	}
}

// newHashForHKDF is the func() hash.Hash constructor golang.org/x/crypto/
// hkdf.New requires; this package's ECDH-ES recipient always derives keys
// with HKDF-SHA256 (ecdh.go).
func newHashForHKDF() hash.Hash {
	return sha256.New()
}

// digest computes the hash of msg under the hash algorithm paired with alg.
func digest(alg Algorithm, msg []byte) ([]byte, error) {
	h, err := newHashForAlgorithm(alg)
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(msg); err != nil {
		return nil, errorf(CodeHashGeneralFail, "cose: hash write failed: %v", err)
	}
	return h.Sum(nil), nil
}
