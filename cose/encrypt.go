package cose

import (
	"crypto/rand"

	"github.com/laurencelundblade/qcbor-go/qcbor"
)

// EncryptMessage is the decoded form of a COSE_Encrypt envelope:
// [protected, unprotected, ciphertext, recipients].
type EncryptMessage struct {
	Headers    Headers
	Ciphertext []byte
}

// Encrypt builds a COSE_Encrypt envelope: a fresh content-encryption key
// is generated, used to seal plaintext under contentAlg, then wrapped for
// each Recipient (spec.md §4.E's generalization of Encrypt0 to COSE_
// Encrypt, mirroring Mac/Mac0).
func Encrypt(contentAlg Algorithm, recipients []Recipient, headers Headers, plaintext []byte, externalAAD []byte, omitTag bool) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrRecipientCannotBeAdded
	}
	size, err := gcmKeySize(contentAlg)
	if err != nil {
		return nil, err
	}
	cek := make([]byte, size)
	if _, err := rand.Read(cek); err != nil {
		return nil, errorf(CodeFail, "cose: encrypt: generating CEK: %v", err)
	}
	iv := make([]byte, 12)
	if _, err := rand.Read(iv); err != nil {
		return nil, errorf(CodeFail, "cose: encrypt: generating IV: %v", err)
	}

	if headers.Protected == nil {
		crit := headers.Crit
		headers = newHeaders()
		headers.Crit = crit
	}
	headers.setProtectedInt(HeaderLabelAlgorithm, int64(contentAlg))
	headers.setUnprotectedBytes(HeaderLabelIV, iv)
	if err := headers.checkDuplicates(); err != nil {
		return nil, err
	}

	enc := qcbor.NewEncoder(make([]byte, 0, 512+len(plaintext)))
	if !omitTag {
		enc.AddTagNumber(CBORTagEncrypt)
	}
	enc.OpenArray()
	protectedBytes, err := writeOuterHeaders(enc, &headers)
	if err != nil {
		return nil, err
	}

	aad, err := buildEncStructure(contextEncrypt, protectedBytes, externalAAD)
	if err != nil {
		return nil, err
	}
	gcm, err := aeadForAlgorithm(contentAlg, cek)
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, iv, plaintext, aad)
	enc.AddBytes(ciphertext)

	if err := writeRecipientsArray(enc, recipients, cek); err != nil {
		return nil, err
	}
	enc.CloseArray()

	out, err := enc.Finish()
	if err != nil {
		return nil, fromQCBOREncode(err)
	}
	return out, nil
}

// EncryptDecrypt parses a COSE_Encrypt envelope, recovers the CEK through
// whichever recipient unwraps successfully, and decrypts the ciphertext.
func EncryptDecrypt(recipients []Recipient, coseMessage []byte, externalAAD []byte) (*EncryptMessage, []byte, error) {
	dec := qcbor.NewDecoder(coseMessage)
	arr, err := dec.EnterArray()
	if err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if err := checkMessageTag(arr.TagNums, CBORTagEncrypt); err != nil {
		return nil, nil, err
	}
	if arr.Count != 4 {
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

	cek, recErr := readRecipientsArray(dec, recipients)
	if err := dec.ExitArray(); err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if err := dec.Finish(); err != nil {
		return nil, nil, fromQCBORDecode(err)
	}
	if recErr != nil {
		return nil, nil, errorf(CodeRecipientFormat, "cose: encrypt: no recipient could be unwrapped: %v", recErr)
	}

	alg, ok := headers.Algorithm()
	if !ok {
		return nil, nil, ErrNoAlgID
	}
	iv, ok := headers.IV()
	if !ok {
		return nil, nil, errorf(CodeInvalidArgument, "cose: encrypt: no IV header parameter present")
	}
	aad, err := buildEncStructure(contextEncrypt, headers.ProtectedBytes, externalAAD)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := aeadForAlgorithm(alg, cek)
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, aad)
	if err != nil {
		return nil, nil, ErrDecryptFail
	}

	return &EncryptMessage{Headers: *headers, Ciphertext: ciphertext}, plaintext, nil
}
