/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package client builds the four canonical operation request payloads
// (create, update, recover, deactivate) that a Sidetree client submits
// to a node's operation endpoint. It never talks to a store or a
// ledger; it only shapes and signs requests.
package client

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-multihash"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

// Signer signs data and describes the protected headers (algorithm and
// key id) that go with the signing key.
type Signer interface {
	// Sign signs data and returns the raw signature value.
	Sign(data []byte) ([]byte, error)

	// Headers provides the required JWS protected headers.
	Headers() jws.Headers
}

func validateSigner(signer Signer) error {
	if signer == nil {
		return errors.New("missing signer")
	}

	if signer.Headers() == nil {
		return errors.New("missing protected headers")
	}

	alg, ok := signer.Headers().Algorithm()
	if !ok || alg == "" {
		return errors.New("algorithm must be present in the protected header")
	}

	allowedHeaders := map[string]bool{
		jws.HeaderAlgorithm: true,
		jws.HeaderKeyID:     true,
	}

	for h := range signer.Headers() {
		if !allowedHeaders[h] {
			return fmt.Errorf("header '%s' is not allowed in the protected headers", h)
		}
	}

	return nil
}

func validateCommitment(jwk *jws.JWK, multihashCode uint, nextCommitment string) error {
	currentCommitment, err := commitmentFor(jwk, multihashCode)
	if err != nil {
		return fmt.Errorf("calculate current commitment: %s", err.Error())
	}

	if currentCommitment == nextCommitment {
		return errors.New("re-using public keys for commitment is not allowed")
	}

	return nil
}

func commitmentFor(jwk *jws.JWK, multihashCode uint) (string, error) {
	return hashing.CalculateModelMultihash(jwk, multihashCode)
}

func validateMultihashCode(code uint) error {
	if !multihash.ValidCode(uint64(code)) {
		return fmt.Errorf("multihash[%d] not supported", code)
	}

	return nil
}
