package cose

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
)

// Key is an opaque key handle, per spec.md §5 ("Crypto keys are opaque
// handles whose lifetime the caller manages") and §6 (the crypto adapter
// table takes "key handle" without the core interpreting its bytes). A Key
// wraps exactly one of a private signing key, a public verification key, a
// symmetric secret, or an ECDH key-agreement key pair/public key.
type Key struct {
	alg       Algorithm
	kid       []byte
	signer    crypto.Signer
	public    crypto.PublicKey
	symmetric []byte
	ecdhPriv  *ecdh.PrivateKey
	ecdhPub   *ecdh.PublicKey
}

// NewECDHPrivateKey wraps a recipient's static ECDH key pair for use as an
// ecdh.go key-agreement Recipient via NewECDHRecipient.
func NewECDHPrivateKey(alg Algorithm, kid []byte, priv *ecdh.PrivateKey) *Key {
	return &Key{alg: alg, kid: kid, ecdhPriv: priv, ecdhPub: priv.PublicKey()}
}

// NewECDHPublicKey wraps a sender's view of a recipient's static ECDH
// public key, used when building (not opening) an ECDH-ES recipient.
func NewECDHPublicKey(alg Algorithm, kid []byte, pub *ecdh.PublicKey) *Key {
	return &Key{alg: alg, kid: kid, ecdhPub: pub}
}

// NewSigningKey wraps a crypto.Signer (an *ecdsa.PrivateKey, ed25519.
// PrivateKey or *rsa.PrivateKey) for use as a Signer via NewSigner.
func NewSigningKey(alg Algorithm, kid []byte, priv crypto.Signer) *Key {
	return &Key{alg: alg, kid: kid, signer: priv}
}

// NewVerificationKey wraps a public key for use as a Verifier via
// NewVerifier.
func NewVerificationKey(alg Algorithm, kid []byte, pub crypto.PublicKey) *Key {
	return &Key{alg: alg, kid: kid, public: pub}
}

// NewSymmetricKey wraps a shared secret for HMAC (NewMACer/NewMACVerifier)
// or AES-GCM/AES-KW (encrypt0.go, recipient.go) use.
func NewSymmetricKey(alg Algorithm, kid []byte, secret []byte) *Key {
	return &Key{alg: alg, kid: kid, symmetric: secret}
}

// Algorithm returns the algorithm this key is intended for.
func (k *Key) Algorithm() Algorithm { return k.alg }

// KeyID returns the caller-assigned key identifier, used to populate and
// match the "kid" header parameter (label 4).
func (k *Key) KeyID() []byte { return k.kid }

func publicFromSigner(s crypto.Signer) crypto.PublicKey {
	if s == nil {
		return nil
	}
	return s.Public()
}

// ecdsaPublic / ed25519Public / rsaPublic perform the type assertion from
// the opaque PublicKey interface{} into the concrete key type expected by
// a given algorithm, translating a mismatch into ErrWrongTypeOfKey.
func ecdsaPublic(k *Key) (*ecdsa.PublicKey, error) {
	pub := k.public
	if pub == nil && k.signer != nil {
		pub = publicFromSigner(k.signer)
	}
	p, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	return p, nil
}

func ed25519Public(k *Key) (ed25519.PublicKey, error) {
	pub := k.public
	if pub == nil && k.signer != nil {
		pub = publicFromSigner(k.signer)
	}
	p, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	return p, nil
}

func rsaPublic(k *Key) (*rsa.PublicKey, error) {
	pub := k.public
	if pub == nil && k.signer != nil {
		pub = publicFromSigner(k.signer)
	}
	p, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrWrongTypeOfKey
	}
	return p, nil
}
