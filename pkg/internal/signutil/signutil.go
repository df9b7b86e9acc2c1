/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signutil canonicalizes a signed-data model and produces the
// compact JWS client request builders embed as an operation's
// signedData member.
package signutil

import (
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

// Signer signs data with a client-held key and supplies the protected
// headers describing that key.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	Headers() jws.Headers
}

// SignModel canonicalizes model and returns the compact JWS produced
// by signing it with signer.
func SignModel(model interface{}, signer Signer) (string, error) {
	payload, err := canonicalizer.MarshalCanonical(model)
	if err != nil {
		return "", fmt.Errorf("canonicalize signed data: %s", err.Error())
	}

	return signWithSigner(signer.Headers(), payload, signer)
}

// signWithSigner mirrors jws.Sign but delegates the actual signature
// computation to signer, so callers never need to hand over a raw
// private key to build a request.
func signWithSigner(headers jws.Headers, payload []byte, signer Signer) (string, error) {
	if _, ok := headers.Algorithm(); !ok {
		return "", fmt.Errorf("missing alg header")
	}

	signingInput, err := jws.SigningInput(headers, payload)
	if err != nil {
		return "", err
	}

	sig, err := signer.Sign(signingInput)
	if err != nil {
		return "", fmt.Errorf("sign payload: %s", err.Error())
	}

	return jws.CompactSerialize(signingInput, sig), nil
}
