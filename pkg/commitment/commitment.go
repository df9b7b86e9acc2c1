/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package commitment computes the commitment value for a public key:
// the base64url multihash of the key's canonicalized JWK. Operation
// parsers and client request builders use it to reject reveal/commit
// pairs that would reuse the same key (spec §4.4, "re-using public
// keys for commitment is not allowed").
package commitment

import (
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

// GetCommitment returns the base64url multihash commitment for jwk
// using multihashCode.
func GetCommitment(jwk *jws.JWK, multihashCode uint) (string, error) {
	return hashing.CalculateModelMultihash(jwk, multihashCode)
}
