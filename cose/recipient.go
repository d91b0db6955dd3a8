package cose

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Recipient is the polymorphic capability set spec.md §9 describes for
// COSE_recipient structures: a 3-element [protected, unprotected,
// encrypted-key] array that carries (or derives) the content-encryption
// key for one recipient of a multi-recipient COSE_Mac/COSE_Encrypt
// message.
type Recipient interface {
	// Algorithm is recorded as this recipient's protected "alg" header.
	Algorithm() Algorithm
	// WrapKey returns the bytes to place in the encrypted-key slot for
	// contentKey (the empty slice for AlgorithmDirect).
	WrapKey(contentKey []byte) ([]byte, error)
	// UnwrapKey recovers the content-encryption key from a decoded
	// encrypted-key slot.
	UnwrapKey(encryptedKey []byte) ([]byte, error)
	KeyID() []byte
}

// directRecipient implements AlgorithmDirect: the recipient's own
// symmetric key *is* the content-encryption key (RFC 9053 §8.5.1); no
// wrapping occurs and the encrypted-key slot is the empty byte string.
type directRecipient struct {
	key *Key
}

// NewDirectRecipient returns a Recipient that uses key directly as the
// CEK, without AES key wrap.
func NewDirectRecipient(key *Key) Recipient { return &directRecipient{key: key} }

func (r *directRecipient) Algorithm() Algorithm { return AlgorithmDirect }
func (r *directRecipient) KeyID() []byte        { return r.key.kid }

func (r *directRecipient) WrapKey(contentKey []byte) ([]byte, error) {
	return []byte{}, nil
}

func (r *directRecipient) UnwrapKey(encryptedKey []byte) ([]byte, error) {
	return r.key.symmetric, nil
}

// aesKWRecipient implements A128KW/A192KW/A256KW: the CEK is wrapped with
// the recipient's key-encryption key using the RFC 3394 AES key wrap
// algorithm (aesKeyWrap/aesKeyUnwrap below).
type aesKWRecipient struct {
	key *Key
}

// NewAESKWRecipient returns a Recipient that wraps/unwraps the CEK with
// key (whose length must match key.Algorithm()'s key size: 16/24/32
// bytes for A128KW/A192KW/A256KW).
func NewAESKWRecipient(key *Key) (Recipient, error) {
	switch key.alg {
	case AlgorithmA128KW, AlgorithmA192KW, AlgorithmA256KW:
	default:
		return nil, ErrUnsupportedContentKeyDistributionAlg
	}
	if len(key.symmetric) != kwKeySize(key.alg) {
		return nil, ErrUnsupportedKeyLength
	}
	return &aesKWRecipient{key: key}, nil
}

func (r *aesKWRecipient) Algorithm() Algorithm { return r.key.alg }
func (r *aesKWRecipient) KeyID() []byte        { return r.key.kid }

func (r *aesKWRecipient) WrapKey(contentKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(r.key.symmetric)
	if err != nil {
		return nil, ErrKWFailed
	}
	return aesKeyWrap(block, contentKey)
}

func (r *aesKWRecipient) UnwrapKey(encryptedKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(r.key.symmetric)
	if err != nil {
		return nil, ErrKWFailed
	}
	return aesKeyUnwrap(block, encryptedKey)
}

func kwKeySize(alg Algorithm) int {
	switch alg {
	case AlgorithmA128KW:
		return 16
	case AlgorithmA192KW:
		return 24
	case AlgorithmA256KW:
		return 32
	default:
		return 0
	}
}

// aesKeyWrap implements RFC 3394 AES Key Wrap, the `kw_wrap` crypto
// adapter operation of spec.md §6. It requires len(plaintext) to be a
// multiple of 8 bytes and at least 16.
func aesKeyWrap(block cipher.Block, plaintext []byte) ([]byte, error) {
	if len(plaintext) < 16 || len(plaintext)%8 != 0 {
		return nil, ErrKWFailed
	}
	n := len(plaintext) / 8
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, plaintext[i*8:(i+1)*8]...)
	}
	a := []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}
	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[i-1])
			block.Encrypt(buf, buf)
			t := uint64(n*j + i)
			tBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(tBytes, t)
			for k := range a {
				a[k] = buf[k] ^ tBytes[k]
			}
			r[i-1] = append([]byte{}, buf[8:]...)
		}
	}
	out := make([]byte, 0, 8+len(plaintext))
	out = append(out, a...)
	for _, ri := range r {
		out = append(out, ri...)
	}
	return out, nil
}

// aesKeyUnwrap implements the inverse of aesKeyWrap, failing closed
// (ErrKWFailed) on integrity-check mismatch rather than returning
// partially-unwrapped data.
func aesKeyUnwrap(block cipher.Block, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, ErrKWFailed
	}
	n := len(wrapped)/8 - 1
	a := append([]byte{}, wrapped[:8]...)
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, wrapped[8+i*8:8+(i+1)*8]...)
	}
	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			tBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(tBytes, t)
			xored := make([]byte, 8)
			for k := range a {
				xored[k] = a[k] ^ tBytes[k]
			}
			copy(buf[:8], xored)
			copy(buf[8:], r[i-1])
			block.Decrypt(buf, buf)
			a = append([]byte{}, buf[:8]...)
			r[i-1] = append([]byte{}, buf[8:]...)
		}
	}
	expected := []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}
	for i := range expected {
		if a[i] != expected[i] {
			return nil, ErrKWFailed
		}
	}
	out := make([]byte, 0, 8*n)
	for _, ri := range r {
		out = append(out, ri...)
	}
	return out, nil
}

// writeRecipientsArray and readRecipientsArray are shared by COSE_Mac and
// COSE_Encrypt (spec.md §4.E, "Multi-signer/multi-recipient"): the 4th
// array element of a multi-recipient message is itself an array of
// COSE_recipient 3-tuples.
func writeRecipientsArray(enc *qcbor.Encoder, recipients []Recipient, contentKey []byte) error {
	enc.OpenArray()
	for _, rec := range recipients {
		h := newHeaders()
		h.setProtectedInt(HeaderLabelAlgorithm, int64(rec.Algorithm()))
		if kid := rec.KeyID(); len(kid) > 0 {
			h.setUnprotectedBytes(HeaderLabelKeyID, kid)
		}
		enc.OpenArray()
		if _, err := writeOuterHeaders(enc, &h); err != nil {
			return err
		}
		wrapped, err := rec.WrapKey(contentKey)
		if err != nil {
			return errorf(CodeKWFailed, "cose: wrap recipient key: %v", err)
		}
		enc.AddBytes(wrapped)
		enc.CloseArray()
	}
	enc.CloseArray()
	return nil
}

func readRecipientsArray(dec *qcbor.Decoder, recipients []Recipient) ([]byte, error) {
	arr, err := dec.EnterArray()
	if err != nil {
		return nil, fromQCBORDecode(err)
	}
	var contentKey []byte
	var lastErr error = ErrNoMore
	for i := uint64(0); i < arr.Count; i++ {
		recArr, err := dec.EnterArray()
		if err != nil {
			return nil, fromQCBORDecode(err)
		}
		if recArr.Count != 3 {
			return nil, ErrRecipientFormat
		}
		recHeaders, err := decodeOuterHeaders(dec)
		if err != nil {
			return nil, err
		}
		encryptedKey, err := dec.GetBytes()
		if err != nil {
			return nil, fromQCBORDecode(err)
		}
		if err := dec.ExitArray(); err != nil {
			return nil, fromQCBORDecode(err)
		}
		kid, _ := recHeaders.KeyID()
		alg, _ := recHeaders.Algorithm()
		for _, rec := range recipients {
			if rec.Algorithm() != alg {
				continue
			}
			if len(rec.KeyID()) > 0 && string(rec.KeyID()) != string(kid) {
				continue
			}
			if ck, err := rec.UnwrapKey(encryptedKey); err == nil {
				contentKey = ck
				lastErr = nil
			}
		}
	}
	if err := dec.ExitArray(); err != nil {
		return nil, fromQCBORDecode(err)
	}
	return contentKey, lastErr
}
