package cose

// Algorithm is a COSE algorithm identifier (RFC 9053), carried as the
// integer value of the "alg" header parameter (label 1, spec.md §6).
type Algorithm int64

// Registered algorithms used by this package. Values are the IANA COSE
// Algorithms registry entries that the adapters in signer.go, hmac.go and
// encrypt0.go know how to drive.
const (
	AlgorithmInvalid Algorithm = 0

	AlgorithmES256 Algorithm = -7
	AlgorithmES384 Algorithm = -35
	AlgorithmES512 Algorithm = -36

	AlgorithmEdDSA Algorithm = -8

	AlgorithmPS256 Algorithm = -37
	AlgorithmPS384 Algorithm = -38
	AlgorithmPS512 Algorithm = -39
	AlgorithmRS256 Algorithm = -257
	AlgorithmRS384 Algorithm = -258
	AlgorithmRS512 Algorithm = -259

	AlgorithmHMAC256_64  Algorithm = 4
	AlgorithmHMAC256_256 Algorithm = 5
	AlgorithmHMAC384_384 Algorithm = 6
	AlgorithmHMAC512_512 Algorithm = 7

	AlgorithmA128GCM Algorithm = 1
	AlgorithmA192GCM Algorithm = 2
	AlgorithmA256GCM Algorithm = 3

	AlgorithmA128KW Algorithm = -3
	AlgorithmA192KW Algorithm = -4
	AlgorithmA256KW Algorithm = -5

	// AlgorithmDirect marks a recipient whose CEK is the recipient key
	// itself, with no key wrap step (RFC 9053 §8.5.1).
	AlgorithmDirect Algorithm = -6

	// AlgorithmECDHESA128KW is ECDH-ES with the concatenation KDF replaced
	// by HKDF-SHA256 (ecdh.go's ecdhESRecipient deviates from RFC 9053
	// §8.5.3's exact KDF for concreteness; see DESIGN.md), then
	// A128KW-wraps the CEK under the derived key-encryption key.
	AlgorithmECDHESA128KW Algorithm = -29
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmES256:
		return "ES256"
	case AlgorithmES384:
		return "ES384"
	case AlgorithmES512:
		return "ES512"
	case AlgorithmEdDSA:
		return "EdDSA"
	case AlgorithmPS256:
		return "PS256"
	case AlgorithmPS384:
		return "PS384"
	case AlgorithmPS512:
		return "PS512"
	case AlgorithmRS256:
		return "RS256"
	case AlgorithmRS384:
		return "RS384"
	case AlgorithmRS512:
		return "RS512"
	case AlgorithmHMAC256_64:
		return "HMAC 256/64"
	case AlgorithmHMAC256_256:
		return "HMAC 256/256"
	case AlgorithmHMAC384_384:
		return "HMAC 384/384"
	case AlgorithmHMAC512_512:
		return "HMAC 512/512"
	case AlgorithmA128GCM:
		return "A128GCM"
	case AlgorithmA192GCM:
		return "A192GCM"
	case AlgorithmA256GCM:
		return "A256GCM"
	case AlgorithmA128KW:
		return "A128KW"
	case AlgorithmA192KW:
		return "A192KW"
	case AlgorithmA256KW:
		return "A256KW"
	case AlgorithmDirect:
		return "direct"
	case AlgorithmECDHESA128KW:
		return "ECDH-ES+A128KW"
	default:
		return "unknown algorithm"
	}
}
