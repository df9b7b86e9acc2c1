/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jws implements the minimal compact-JWS subset Sidetree
// needs: ES256K (secp256k1) signing and verification over
// base64url(protected) || "." || base64url(payload), with a closed set
// of allowed protected headers.
package jws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

// Headers is a JWS protected header set.
type Headers map[string]interface{}

// Algorithm returns the "alg" header value.
func (h Headers) Algorithm() (string, bool) {
	v, ok := h[HeaderAlgorithm]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// KeyID returns the "kid" header value, if present.
func (h Headers) KeyID() (string, bool) {
	v, ok := h[HeaderKeyID]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// JSONWebSignature is a parsed compact JWS: protected headers plus the
// raw (still-encoded) payload bytes for the caller to unmarshal into
// the expected signed-data schema.
type JSONWebSignature struct {
	ProtectedHeaders Headers
	Payload          json.RawMessage

	signingInput string
	signature    []byte
}

// ParseJWS parses a compact JWS string (protected.payload.signature)
// without verifying the signature; signature verification happens
// separately via Verify once the signing key is known.
func ParseJWS(compactJWS string) (*JSONWebSignature, error) {
	parts := strings.Split(compactJWS, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid JWS compact serialization: expected 3 parts")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode protected headers: %s", err.Error())
	}

	var headers Headers
	if err := json.Unmarshal(headerBytes, &headers); err != nil {
		return nil, fmt.Errorf("unmarshal protected headers: %s", err.Error())
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %s", err.Error())
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode signature: %s", err.Error())
	}

	return &JSONWebSignature{
		ProtectedHeaders: headers,
		Payload:          payloadBytes,
		signingInput:     parts[0] + "." + parts[1],
		signature:        sig,
	}, nil
}

// Verify checks the JWS signature against pub using ES256K
// (SHA-256 + secp256k1, fixed-size r||s, 64 bytes total).
func (j *JSONWebSignature) Verify(pub *JWK) error {
	ecPub, err := pub.PublicKey()
	if err != nil {
		return fmt.Errorf("invalid verification key: %s", err.Error())
	}

	if len(j.signature) != 64 {
		return errors.New("invalid ES256K signature length")
	}

	r := new(big.Int).SetBytes(j.signature[:32])
	s := new(big.Int).SetBytes(j.signature[32:])

	digest := sha256.Sum256([]byte(j.signingInput))

	btcecPub := &btcec.PublicKey{Curve: btcec.S256(), X: ecPub.X, Y: ecPub.Y}
	sig := &btcec.Signature{R: r, S: s}

	if !sig.Verify(digest[:], btcecPub) {
		return errors.New("signature verification failed")
	}

	return nil
}

// Sign produces a compact JWS over payload using priv, with protected
// headers {alg: ES256K[, kid]}.
func Sign(headers Headers, payload []byte, priv *JWK) (string, error) {
	signingInput, err := SigningInput(headers, payload)
	if err != nil {
		return "", err
	}

	ecPriv, err := priv.PrivateKey()
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(signingInput)

	btcecPriv := (*btcec.PrivateKey)(ecPriv)

	sig, err := btcecPriv.Sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("sign payload: %s", err.Error())
	}

	rBytes := leftPad32(sig.R.Bytes())
	sBytes := leftPad32(sig.S.Bytes())

	rawSig := append(rBytes, sBytes...) //nolint:gocritic

	return CompactSerialize(signingInput, rawSig), nil
}

// SigningInput builds the "base64url(headers).base64url(payload)"
// bytes a JWS signature is computed over.
func SigningInput(headers Headers, payload []byte) ([]byte, error) {
	if _, ok := headers.Algorithm(); !ok {
		return nil, errors.New("missing alg header")
	}

	headerBytes, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}

	input := base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payload)

	return []byte(input), nil
}

// CompactSerialize appends a raw (64-byte r||s) ES256K signature to a
// previously computed signing input, producing the compact JWS string.
func CompactSerialize(signingInput, rawSignature []byte) string {
	return string(signingInput) + "." + base64.RawURLEncoding.EncodeToString(rawSignature)
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}

	padded := make([]byte, 32-len(b), 32)

	return append(padded, b...)
}
