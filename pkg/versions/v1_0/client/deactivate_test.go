/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

func TestNewDeactivateRequest(t *testing.T) {
	const didSuffix = "whatever"

	recoveryJWK := &jws.JWK{
		Kty: "EC",
		Crv: "secp256k1",
		X:   "Lg6JSxkLS3UibwxeXsMOMfNELr7bWJiZawYYyHAz-Gs",
		Y:   "iX2OMhdgByoeh_Mo1lYxBlecD6NeFWcBfzJmwyo-T4Y",
	}

	signer := NewMockSigner(nil)

	t.Run("missing unique suffix", func(t *testing.T) {
		info := &DeactivateRequestInfo{}

		request, err := NewDeactivateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing did unique suffix")
	})
	t.Run("missing reveal value", func(t *testing.T) {
		info := &DeactivateRequestInfo{DidSuffix: didSuffix}

		request, err := NewDeactivateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing reveal value")
	})
	t.Run("missing signer", func(t *testing.T) {
		info := &DeactivateRequestInfo{DidSuffix: didSuffix, RevealValue: "reveal"}

		request, err := NewDeactivateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "missing signer")
	})
	t.Run("success", func(t *testing.T) {
		info := &DeactivateRequestInfo{
			DidSuffix:   didSuffix,
			RevealValue: "reveal",
			RecoveryKey: recoveryJWK,
			Signer:      signer,
		}

		request, err := NewDeactivateRequest(info)
		require.NoError(t, err)
		require.NotEmpty(t, request)
	})
}
