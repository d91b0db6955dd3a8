package cose

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// Encrypt0Message is the decoded form of a COSE_Encrypt0 envelope:
// [protected, unprotected, ciphertext] (spec.md §4.E, "Encrypt0 flow").
type Encrypt0Message struct {
	Headers    Headers
	Ciphertext []byte
}

// Encrypt0Options configures Encrypt0 encode/decode.
type Encrypt0Options struct {
	OmitTag     bool
	ExternalAAD []byte
}

func aeadForAlgorithm(alg Algorithm, key []byte) (cipher.AEAD, error) {
	size, err := gcmKeySize(alg)
	if err != nil {
		return nil, err
	}
	if len(key) != size {
		return nil, ErrUnsupportedKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errorf(CodeUnsupportedCipherAlg, "cose: aes: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errorf(CodeUnsupportedCipherAlg, "cose: gcm: %v", err)
	}
	return gcm, nil
}

func gcmKeySize(alg Algorithm) (int, error) {
	switch alg {
	case AlgorithmA128GCM:
		return 16, nil
	case AlgorithmA192GCM:
		return 24, nil
	case AlgorithmA256GCM:
		return 32, nil
	default:
		return 0, ErrUnsupportedEncryptionAlg
	}
}

// Encrypt0 builds a COSE_Encrypt0 envelope. The Enc_structure (context
// "Encrypt0") serves as AEAD associated data, not as hashed input (spec.md
// §4.E, "Encrypt0 flow": "this serves as AEAD associated data"). iv
// becomes the unprotected "IV" parameter (label 5) and the AEAD nonce;
// callers must supply a fresh one per message.
func Encrypt0(key *Key, headers Headers, iv, plaintext []byte, opts Encrypt0Options) ([]byte, error) {
	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	headers.setProtectedInt(HeaderLabelAlgorithm, int64(key.alg))
	headers.setUnprotectedBytes(HeaderLabelIV, iv)
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 256+len(plaintext)))
	if !opts.OmitTag {
		enc.AddTagNumber(CBORTagEncrypt0)
	}
	enc.OpenArray()
	protectedBytes, err := writeOuterHeaders(enc, &headers)
	if err != nil {
		return nil, err
	}

	aad, err := buildEncStructure(contextEncrypt0, protectedBytes, opts.ExternalAAD)
	if err != nil {
		return nil, err
	}
	gcm, err := aeadForAlgorithm(key.alg, key.symmetric)
	if err != nil {
		return nil, err
	}
	if len(iv) != gcm.NonceSize() {
		return nil, errorf(CodeInvalidArgument, "cose: encrypt0: IV length %d != nonce size %d", len(iv), gcm.NonceSize())
	}
	ciphertext := gcm.Seal(nil, iv, plaintext, aad)
	enc.AddBytes(ciphertext)
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// Encrypt0Decrypt parses and decrypts a COSE_Encrypt0 envelope.
func Encrypt0Decrypt(key *Key, coseMessage []byte, opts Encrypt0Options) (*Encrypt0Message, []byte, error) {
	dec := qcbor.NewDecoder(coseMessage)
	arr, err := dec.EnterArray()
	if err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagEncrypt0); err != nil {
		return nil, nil, err
	}
	if arr.Count != 3 {
		return nil, nil, ErrCBORMandatoryFieldMissing
	}

	headers, err := decodeOuterHeaders(dec)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err := dec.GetBytes()
	if err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if err := dec.ExitArray(); err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, nil, fromQCBORDecode(err)
	}

	iv, ok := headers.IV()
	if !ok {
		return nil, nil, errorf(CodeInvalidArgument, "cose: encrypt0: no IV header parameter present")
	}
	aad, err := buildEncStructure(contextEncrypt0, headers.ProtectedBytes, opts.ExternalAAD)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := aeadForAlgorithm(key.alg, key.symmetric)
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, aad)
	if err != nil {
		return nil, nil, ErrDecryptFail
	}

	return &Encrypt0Message{Headers: *headers, Ciphertext: ciphertext}, plaintext, nil
}
