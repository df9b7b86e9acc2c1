/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/commitment"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

func TestNewRecoverRequest(t *testing.T) {
	const didSuffix = "whatever"

	patches := getTestPatches()

	recoveryJWK := &jws.JWK{
		Kty: "EC",
		Crv: "secp256k1",
		X:   "Lg6JSxkLS3UibwxeXsMOMfNELr7bWJiZawYYyHAz-Gs",
		Y:   "iX2OMhdgByoeh_Mo1lYxBlecD6NeFWcBfzJmwyo-T4Y",
	}

	signer := NewMockSigner(nil)

	t.Run("missing unique suffix", func(t *testing.T) {
		info := &RecoverRequestInfo{}

		request, err := NewRecoverRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing did unique suffix")
	})
	t.Run("missing reveal value", func(t *testing.T) {
		info := &RecoverRequestInfo{DidSuffix: didSuffix}

		request, err := NewRecoverRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing reveal value")
	})
	t.Run("missing opaque document and patches", func(t *testing.T) {
		info := &RecoverRequestInfo{DidSuffix: didSuffix, RevealValue: "reveal"}

		request, err := NewRecoverRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "either opaque document or patches have to be supplied")
	})
	t.Run("missing recovery key", func(t *testing.T) {
		info := &RecoverRequestInfo{
			DidSuffix:   didSuffix,
			RevealValue: "reveal",
			Patches:     patches,
			Signer:      signer,
		}

		request, err := NewRecoverRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing recovery key")
	})
	t.Run("error - re-using public keys for commitment is not allowed", func(t *testing.T) {
		currentCommitment, err := commitment.GetCommitment(recoveryJWK, multihashCodeSHA256)
		require.NoError(t, err)

		info := &RecoverRequestInfo{
			DidSuffix:          didSuffix,
			RevealValue:        "reveal",
			Patches:            patches,
			RecoveryKey:        recoveryJWK,
			RecoveryCommitment: currentCommitment,
			MultihashCode:      multihashCodeSHA256,
			Signer:             signer,
		}

		request, err := NewRecoverRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "re-using public keys for commitment is not allowed")
	})
	t.Run("success", func(t *testing.T) {
		info := &RecoverRequestInfo{
			DidSuffix:          didSuffix,
			RevealValue:        "reveal",
			Patches:            patches,
			RecoveryKey:        recoveryJWK,
			RecoveryCommitment: "different-commitment",
			UpdateCommitment:   "update-commitment",
			MultihashCode:      multihashCodeSHA256,
			Signer:             signer,
		}

		request, err := NewRecoverRequest(info)
		require.NoError(t, err)
		require.NotEmpty(t, request)
	})
}
