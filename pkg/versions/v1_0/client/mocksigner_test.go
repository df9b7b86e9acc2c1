/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"crypto/ecdsa"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

const multihashCodeSHA256 = 18

// MockSigner returns a canned error or, if err is nil, a real ES256K
// signature over the given data.
type MockSigner struct {
	MockHeaders jws.Headers
	Err         error

	key *ecdsa.PrivateKey
}

// NewMockSigner creates a mock signer that fails with err, or signs
// with a freshly generated ES256K key if err is nil.
func NewMockSigner(err error) *MockSigner {
	s := &MockSigner{Err: err, MockHeaders: jws.Headers{jws.HeaderAlgorithm: jws.AlgorithmES256K}}

	if err == nil {
		key, genErr := btcec.NewPrivateKey(btcec.S256())
		if genErr != nil {
			panic(genErr)
		}

		s.key = (*ecdsa.PrivateKey)(key)
	}

	return s
}

// Headers returns the mock's protected headers.
func (s *MockSigner) Headers() jws.Headers {
	return s.MockHeaders
}

// Sign signs the already-encoded signing input directly, returning the
// canned error if one was configured.
func (s *MockSigner) Sign(data []byte) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	digest := sha256.Sum256(data)

	btcecPriv := (*btcec.PrivateKey)(s.key)

	sig, err := btcecPriv.Sign(digest[:])
	if err != nil {
		return nil, err
	}

	rBytes := leftPad32(sig.R.Bytes())
	sBytes := leftPad32(sig.S.Bytes())

	return append(rBytes, sBytes...), nil //nolint:gocritic
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}

	padded := make([]byte, 32-len(b), 32)

	return append(padded, b...)
}
