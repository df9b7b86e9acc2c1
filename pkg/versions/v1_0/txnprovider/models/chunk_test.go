/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

func TestCreateChunkFile(t *testing.T) {
	ops := getTestOperations(5, 4, 1)

	chunk, err := CreateChunkFile(ops)
	require.NoError(t, err)
	require.NotNil(t, chunk)
	require.Equal(t, len(ops), len(chunk.Deltas))
}

func TestParseChunkFile(t *testing.T) {
	ops := getTestOperations(5, 4, 1)

	model, err := CreateChunkFile(ops)
	require.NoError(t, err)

	bytes, err := json.Marshal(model)
	require.NoError(t, err)

	parsed, err := ParseChunkFile(bytes)
	require.NoError(t, err)
	require.Equal(t, len(ops), len(parsed.Deltas))

	decoded, err := DecodeDelta(parsed.Deltas[0])
	require.NoError(t, err)
	require.NotNil(t, decoded)
}

// getTestOperations builds createOpsNum+updateOpsNum+recoverOpsNum
// identical operations (no Type set), each with a suffix and a minimal
// delta — enough to exercise chunk file construction and parsing.
func getTestOperations(createOpsNum, updateOpsNum, recoverOpsNum int) []*operation.Operation {
	var ops []*operation.Operation

	for i := 0; i < createOpsNum+updateOpsNum+recoverOpsNum; i++ {
		ops = append(ops, &operation.Operation{
			UniqueSuffix: "suffix",
			Delta: &operation.DeltaModel{
				UpdateCommitment: "commitment",
			},
		})
	}

	return ops
}
