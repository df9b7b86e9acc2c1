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

// SignedDataEntry is a single operation's compact JWS, as carried in a
// proof file.
type SignedDataEntry struct {
	SignedData string `json:"signedData"`
}

// CoreProofFile carries the recover and deactivate JWS proofs, in the
// same order as their core index file references.
type CoreProofFile struct {
	Operations CoreProofOperations `json:"operations"`
}

// CoreProofOperations holds a core proof file's recover/deactivate entries.
type CoreProofOperations struct {
	Recover    []SignedDataEntry `json:"recover,omitempty"`
	Deactivate []SignedDataEntry `json:"deactivate,omitempty"`
}

// CreateCoreProofFile builds a core proof file from the batch's
// recover and deactivate operations, in the same order they appear in
// the core index file. Returns nil if neither is present (no core
// proof file is written in that case).
func CreateCoreProofFile(recovers, deactivates []*operation.Operation) *CoreProofFile {
	if len(recovers) == 0 && len(deactivates) == 0 {
		return nil
	}

	cpf := CoreProofFile{}

	for _, op := range recovers {
		cpf.Operations.Recover = append(cpf.Operations.Recover, SignedDataEntry{SignedData: op.SignedData})
	}

	for _, op := range deactivates {
		cpf.Operations.Deactivate = append(cpf.Operations.Deactivate, SignedDataEntry{SignedData: op.SignedData})
	}

	return &cpf
}

// ParseCoreProofFile unmarshals a (already decompressed) core proof file.
func ParseCoreProofFile(bytes []byte) (*CoreProofFile, error) {
	var cpf CoreProofFile

	if err := json.Unmarshal(bytes, &cpf); err != nil {
		return nil, fmt.Errorf("parse core proof file: %s", err.Error())
	}

	return &cpf, nil
}

// ProvisionalProofFile carries the update JWS proofs, in the same
// order as their provisional index file references.
type ProvisionalProofFile struct {
	Operations ProvisionalProofOperations `json:"operations"`
}

// ProvisionalProofOperations holds a provisional proof file's update entries.
type ProvisionalProofOperations struct {
	Update []SignedDataEntry `json:"update,omitempty"`
}

// CreateProvisionalProofFile builds a provisional proof file from the
// batch's update operations. Returns nil if there are none.
func CreateProvisionalProofFile(updates []*operation.Operation) *ProvisionalProofFile {
	if len(updates) == 0 {
		return nil
	}

	ppf := ProvisionalProofFile{}

	for _, op := range updates {
		ppf.Operations.Update = append(ppf.Operations.Update, SignedDataEntry{SignedData: op.SignedData})
	}

	return &ppf
}

// ParseProvisionalProofFile unmarshals a (already decompressed)
// provisional proof file.
func ParseProvisionalProofFile(bytes []byte) (*ProvisionalProofFile, error) {
	var ppf ProvisionalProofFile

	if err := json.Unmarshal(bytes, &ppf); err != nil {
		return nil, fmt.Errorf("parse provisional proof file: %s", err.Error())
	}

	return &ppf, nil
}
