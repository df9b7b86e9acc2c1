/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"encoding/json"
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

// ProvisionalIndexFile carries the batch's single chunk reference and
// any update operation references, plus an optional provisional proof
// file reference.
type ProvisionalIndexFile struct {
	ProvisionalProofFileURI string                 `json:"provisionalProofFileUri,omitempty"`
	Chunks                  []Chunk                `json:"chunks"`
	Operations              *ProvisionalOperations `json:"operations,omitempty"`
}

// Chunk references a single chunk file. This protocol version always
// carries exactly one.
type Chunk struct {
	ChunkFileURI string `json:"chunkFileUri"`
}

// ProvisionalOperations holds the update references a provisional
// index file carries.
type ProvisionalOperations struct {
	Update []operation.Reference `json:"update,omitempty"`
}

// CreateProvisionalIndexFile builds a provisional index file
// referencing chunkURI and, if updates is non-empty, proofURI.
func CreateProvisionalIndexFile(chunkURI, proofURI string, updates []*operation.Operation) *ProvisionalIndexFile {
	pif := &ProvisionalIndexFile{
		Chunks: []Chunk{{ChunkFileURI: chunkURI}},
	}

	if len(updates) == 0 {
		return pif
	}

	pif.ProvisionalProofFileURI = proofURI

	ops := &ProvisionalOperations{}
	for _, op := range updates {
		ops.Update = append(ops.Update, operation.Reference{UniqueSuffix: op.UniqueSuffix, RevealValue: op.RevealValue})
	}

	pif.Operations = ops

	return pif
}

// ParseProvisionalIndexFile unmarshals a (already decompressed)
// provisional index file.
func ParseProvisionalIndexFile(bytes []byte) (*ProvisionalIndexFile, error) {
	var pif ProvisionalIndexFile

	if err := json.Unmarshal(bytes, &pif); err != nil {
		return nil, fmt.Errorf("parse provisional index file: %s", err.Error())
	}

	if len(pif.Chunks) == 0 {
		return nil, fmt.Errorf("parse provisional index file: missing chunks")
	}

	return &pif, nil
}
