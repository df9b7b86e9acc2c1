/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"encoding/json"
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
)

// ChunkFile carries every operation's encoded delta, concatenated in
// the order creates ∥ recovers ∥ updates (spec §3, "Chunk file").
// Deactivate operations carry no delta and are absent here.
type ChunkFile struct {
	Deltas []string `json:"deltas"`
}

// CreateChunkFile builds a chunk file from ops, in the order supplied.
// Callers must pass creates ∥ recovers ∥ updates and omit deactivates.
func CreateChunkFile(ops []*operation.Operation) (*ChunkFile, error) {
	deltas := make([]string, 0, len(ops))

	for _, op := range ops {
		encoded, err := EncodeDelta(op.Delta)
		if err != nil {
			return nil, fmt.Errorf("encode delta for %s: %s", op.UniqueSuffix, err.Error())
		}

		deltas = append(deltas, encoded)
	}

	return &ChunkFile{Deltas: deltas}, nil
}

// EncodeDelta canonicalizes and base64url-encodes a delta, the form in
// which it is carried in a chunk file and hashed for delta-hash binding.
func EncodeDelta(delta *operation.DeltaModel) (string, error) {
	canonical, err := canonicalizer.MarshalCanonical(delta)
	if err != nil {
		return "", err
	}

	return encoder.EncodeToString(canonical), nil
}

// DecodeDelta reverses EncodeDelta.
func DecodeDelta(encoded string) (*operation.DeltaModel, error) {
	raw, err := encoder.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode delta: %s", err.Error())
	}

	var delta operation.DeltaModel

	if err := json.Unmarshal(raw, &delta); err != nil {
		return nil, fmt.Errorf("unmarshal delta: %s", err.Error())
	}

	return &delta, nil
}

// ParseChunkFile unmarshals a (already decompressed) chunk file.
func ParseChunkFile(bytes []byte) (*ChunkFile, error) {
	var cf ChunkFile

	if err := json.Unmarshal(bytes, &cf); err != nil {
		return nil, fmt.Errorf("parse chunk file: %s", err.Error())
	}

	return &cf, nil
}
