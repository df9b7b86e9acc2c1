/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jws

import (
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

const (
	secp256k1Crv  = "secp256k1"
	secp256k1Kty  = "EC"
	secp256k1Size = 32

	// HeaderAlgorithm is the JWS protected header key carrying the
	// signature algorithm.
	HeaderAlgorithm = "alg"

	// HeaderKeyID is the JWS protected header key carrying the key id.
	HeaderKeyID = "kid"

	// AlgorithmES256K is the only signature algorithm this protocol
	// version accepts.
	AlgorithmES256K = "ES256K"
)

// JWK is the subset of JSON Web Key fields Sidetree cares about:
// secp256k1 public (and, for local signing, private) keys represented
// with fixed-size 32-byte x/y/d components.
type JWK struct {
	Kty string `json:"kty,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`

	KeyID     string `json:"-"`
	Algorithm string `json:"-"`
	Use       string `json:"-"`

	// Nonce is an optional anti-replay value some deployments attach to
	// signing keys; if present its decoded length must match the
	// configured nonce size.
	Nonce string `json:"nonce,omitempty"`
}

// Validate checks that the JWK has the mandatory secp256k1 shape: kty
// EC, crv secp256k1, and 32-byte (43 base64url char) x/y.
func (j *JWK) Validate() error {
	if j == nil {
		return errors.New("missing JWK")
	}

	if !strings.EqualFold(j.Kty, secp256k1Kty) {
		return fmt.Errorf("invalid kty: %s", j.Kty)
	}

	if !strings.EqualFold(j.Crv, secp256k1Crv) {
		return fmt.Errorf("invalid crv: %s", j.Crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil || len(xBytes) != secp256k1Size {
		return errors.New("invalid JWK 'x': must be 32 bytes base64url-encoded")
	}

	yBytes, err := base64.RawURLEncoding.DecodeString(j.Y)
	if err != nil || len(yBytes) != secp256k1Size {
		return errors.New("invalid JWK 'y': must be 32 bytes base64url-encoded")
	}

	curve := btcec.S256()
	x := new(big.Int).SetBytes(xBytes)
	y := new(big.Int).SetBytes(yBytes)

	if !curve.IsOnCurve(x, y) {
		return errors.New("public key is not on the secp256k1 curve")
	}

	return nil
}

// PublicKey converts the JWK to a Go ecdsa.PublicKey.
func (j *JWK) PublicKey() (*ecdsa.PublicKey, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	xBytes, _ := base64.RawURLEncoding.DecodeString(j.X)
	yBytes, _ := base64.RawURLEncoding.DecodeString(j.Y)

	return &ecdsa.PublicKey{
		Curve: btcec.S256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// PrivateKey converts the JWK to a Go ecdsa.PrivateKey; it requires
// the "d" component and is used only for locally-submitted (test or
// client-side) operations, never for anchored ones.
func (j *JWK) PrivateKey() (*ecdsa.PrivateKey, error) {
	pub, err := j.PublicKey()
	if err != nil {
		return nil, err
	}

	if j.D == "" {
		return nil, errors.New("JWK has no private component")
	}

	dBytes, err := base64.RawURLEncoding.DecodeString(j.D)
	if err != nil {
		return nil, fmt.Errorf("invalid JWK 'd': %s", err.Error())
	}

	return &ecdsa.PrivateKey{
		PublicKey: *pub,
		D:         new(big.Int).SetBytes(dBytes),
	}, nil
}

// PublicKeyJWK builds a JWK map (as used in a document's publicKeyJwk
// member) from a Go ecdsa.PublicKey.
func PublicKeyJWK(pub *ecdsa.PublicKey) *JWK {
	return &JWK{
		Kty: secp256k1Kty,
		Crv: secp256k1Crv,
		X:   newFixedSizeBase64(pub.X.Bytes()),
		Y:   newFixedSizeBase64(pub.Y.Bytes()),
	}
}

// PrivateKeyJWK builds a JWK map (including the private "d" component)
// from a Go ecdsa.PrivateKey, for test fixtures and client tooling.
func PrivateKeyJWK(priv *ecdsa.PrivateKey) *JWK {
	jwk := PublicKeyJWK(&priv.PublicKey)
	jwk.D = newFixedSizeBase64(priv.D.Bytes())

	return jwk
}

func newFixedSizeBase64(data []byte) string {
	if len(data) < secp256k1Size {
		padded := make([]byte, secp256k1Size-len(data))
		data = append(padded, data...)
	}

	return base64.RawURLEncoding.EncodeToString(data)
}
