/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package models holds the JSON shapes of the Sidetree file hierarchy
// (spec §3, "File hierarchy"): core index, core proof, provisional
// index, provisional proof, and chunk files. Each file is gzip+JSON on
// the wire; this package only knows the JSON side, leaving
// compression to its caller.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

// CoreIndexFile is the batch's entry point: an optional writer lock,
// optional references to the provisional index and core proof files,
// and the create/recover/deactivate operation references.
type CoreIndexFile struct {
	WriterLockID            string          `json:"writerLockId,omitempty"`
	ProvisionalIndexFileURI string          `json:"provisionalIndexFileUri,omitempty"`
	CoreProofFileURI        string          `json:"coreProofFileUri,omitempty"`
	Operations              *CoreOperations `json:"operations,omitempty"`
}

// CoreOperations holds the create/recover/deactivate references a core
// index file carries.
type CoreOperations struct {
	Create     []CreateReference     `json:"create,omitempty"`
	Recover    []operation.Reference `json:"recover,omitempty"`
	Deactivate []operation.Reference `json:"deactivate,omitempty"`
}

// CreateReference is a create operation's entry in the core index
// file: just its suffix data, from which the suffix is derivable.
type CreateReference struct {
	SuffixData *operation.SuffixDataModel `json:"suffixData"`
}

// CreateCoreIndexFile builds a core index file from the batch's
// create/recover/deactivate operations plus the file URIs it
// references. provisionalIndexURI and coreProofURI are omitted from
// the output when empty.
func CreateCoreIndexFile(
	writerLockID, provisionalIndexURI, coreProofURI string,
	creates, recovers, deactivates []*operation.Operation,
) *CoreIndexFile {
	ops := &CoreOperations{}

	for _, op := range creates {
		ops.Create = append(ops.Create, CreateReference{SuffixData: op.SuffixData})
	}

	for _, op := range recovers {
		ops.Recover = append(ops.Recover, operation.Reference{UniqueSuffix: op.UniqueSuffix, RevealValue: op.RevealValue})
	}

	for _, op := range deactivates {
		ops.Deactivate = append(ops.Deactivate,
			operation.Reference{UniqueSuffix: op.UniqueSuffix, RevealValue: op.RevealValue})
	}

	if len(ops.Create) == 0 && len(ops.Recover) == 0 && len(ops.Deactivate) == 0 {
		ops = nil
	}

	return &CoreIndexFile{
		WriterLockID:            writerLockID,
		ProvisionalIndexFileURI: provisionalIndexURI,
		CoreProofFileURI:        coreProofURI,
		Operations:              ops,
	}
}

// ParseCoreIndexFile unmarshals a (already decompressed) core index file.
func ParseCoreIndexFile(bytes []byte) (*CoreIndexFile, error) {
	var cif CoreIndexFile

	if err := json.Unmarshal(bytes, &cif); err != nil {
		return nil, fmt.Errorf("parse core index file: %s", err.Error())
	}

	return &cif, nil
}
