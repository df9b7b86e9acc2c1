/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
)

func TestNewCreateRequest(t *testing.T) {
	patches := getTestPatches()

	recoveryCommitment, err := hashing.CalculateHash([]byte("recovery-key"), multihashCodeSHA256)
	require.NoError(t, err)

	updateCommitment, err := hashing.CalculateHash([]byte("update-key"), multihashCodeSHA256)
	require.NoError(t, err)

	t.Run("missing opaque document and patches", func(t *testing.T) {
		info := &CreateRequestInfo{}

		request, err := NewCreateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "either opaque document or patches have to be supplied")
	})
	t.Run("both opaque document and patches supplied", func(t *testing.T) {
		info := &CreateRequestInfo{OpaqueDocument: "{}", Patches: patches}

		request, err := NewCreateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "cannot provide both opaque document and patches")
	})
	t.Run("multihash not supported", func(t *testing.T) {
		info := &CreateRequestInfo{
			Patches:            patches,
			RecoveryCommitment: recoveryCommitment,
			UpdateCommitment:   updateCommitment,
			MultihashCode:      999999,
		}

		request, err := NewCreateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "not supported")
	})
	t.Run("recovery and update commitment cannot be equal", func(t *testing.T) {
		info := &CreateRequestInfo{
			Patches:            patches,
			RecoveryCommitment: recoveryCommitment,
			UpdateCommitment:   recoveryCommitment,
			MultihashCode:      multihashCodeSHA256,
		}

		request, err := NewCreateRequest(info)
		require.Error(t, err)
		require.Empty(t, request)
		require.Contains(t, err.Error(), "recovery and update commitments cannot be equal")
	})
	t.Run("success", func(t *testing.T) {
		info := &CreateRequestInfo{
			Patches:            patches,
			RecoveryCommitment: recoveryCommitment,
			UpdateCommitment:   updateCommitment,
			MultihashCode:      multihashCodeSHA256,
		}

		request, err := NewCreateRequest(info)
		require.NoError(t, err)
		require.NotEmpty(t, request)
	})
	t.Run("success with opaque document", func(t *testing.T) {
		info := &CreateRequestInfo{
			OpaqueDocument:     `{"publicKeys":[]}`,
			RecoveryCommitment: recoveryCommitment,
			UpdateCommitment:   updateCommitment,
			MultihashCode:      multihashCodeSHA256,
		}

		request, err := NewCreateRequest(info)
		require.NoError(t, err)
		require.NotEmpty(t, request)
	})
}
