// Command sign demonstrates building and verifying a COSE_Sign1 envelope
// with the cose package.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/laurencelundblade/qcbor-go/cose"
)

func main() {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	kid := []byte("key-1")
	signingKey := cose.NewSigningKey(cose.AlgorithmES256, kid, priv)
	signer, err := cose.NewSigner(signingKey)
	if err != nil {
		panic(err)
	}

	payload := []byte("payload to sign")
	msg, err := cose.Sign1(signer, cose.Headers{}, payload, cose.Sign1Options{})
	if err != nil {
		panic(err)
	}
	fmt.Printf("COSE_Sign1 (ES256), %d bytes\n", len(msg))

	verificationKey := cose.NewVerificationKey(cose.AlgorithmES256, kid, &priv.PublicKey)
	verifier, err := cose.NewVerifier(verificationKey)
	if err != nil {
		panic(err)
	}
	decoded, err := cose.Sign1Verify(verifier, msg, nil, cose.Sign1Options{})
	if err != nil {
		panic(err)
	}
	fmt.Printf("verified payload: %q\n", decoded.Payload)
}
