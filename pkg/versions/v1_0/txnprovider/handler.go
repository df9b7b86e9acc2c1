/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txnprovider

import (
	"encoding/json"
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider/models"
)

// compressionProvider compresses batch files before they are written
// to CAS.
type compressionProvider interface {
	Compress(alg string, data []byte) ([]byte, error)
}

// OperationHandler builds the file hierarchy for a batch of operations
// admitted by the BatchWriter and writes it to CAS, returning the
// resulting anchorString.
type OperationHandler struct {
	protocol protocol.Protocol
	cas      cas.Client
	cp       compressionProvider
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(p protocol.Protocol, casClient cas.Client, cp compressionProvider) *OperationHandler {
	return &OperationHandler{protocol: p, cas: casClient, cp: cp}
}

// PrepareTxnFiles builds and writes the core-index, core-proof,
// provisional-index, provisional-proof, and chunk files for ops and
// returns the anchorString to be written to the ledger. writerLockID
// may be empty.
func (h *OperationHandler) PrepareTxnFiles(writerLockID string, ops []*operation.Operation) (string, error) {
	if len(ops) == 0 {
		return "", fmt.Errorf("no operations to anchor")
	}

	var creates, recovers, updates, deactivates []*operation.Operation

	for _, op := range ops {
		switch op.Type {
		case operation.TypeCreate:
			creates = append(creates, op)
		case operation.TypeRecover:
			recovers = append(recovers, op)
		case operation.TypeUpdate:
			updates = append(updates, op)
		case operation.TypeDeactivate:
			deactivates = append(deactivates, op)
		default:
			return "", fmt.Errorf("unsupported operation type: %s", op.Type)
		}
	}

	chunkOps := make([]*operation.Operation, 0, len(creates)+len(recovers)+len(updates))
	chunkOps = append(chunkOps, creates...)
	chunkOps = append(chunkOps, recovers...)
	chunkOps = append(chunkOps, updates...)

	chunkURI, err := h.writeChunkFile(chunkOps)
	if err != nil {
		return "", err
	}

	var provisionalProofURI string

	if len(updates) > 0 {
		provisionalProofURI, err = h.writeProvisionalProofFile(updates)
		if err != nil {
			return "", err
		}
	}

	provisionalIndex := models.CreateProvisionalIndexFile(chunkURI, provisionalProofURI, updates)

	provisionalIndexURI, err := h.writeJSON(provisionalIndex, h.protocol.MaxProvisionalIndexFileSize)
	if err != nil {
		return "", fmt.Errorf("write provisional index file: %s", err.Error())
	}

	var coreProofURI string

	if len(recovers) > 0 || len(deactivates) > 0 {
		coreProofURI, err = h.writeCoreProofFile(recovers, deactivates)
		if err != nil {
			return "", err
		}
	}

	coreIndex := models.CreateCoreIndexFile(writerLockID, provisionalIndexURI, coreProofURI, creates, recovers, deactivates)

	coreIndexURI, err := h.writeJSON(coreIndex, h.protocol.MaxCoreIndexFileSize)
	if err != nil {
		return "", fmt.Errorf("write core index file: %s", err.Error())
	}

	anchorData := &models.AnchorData{CoreIndexFileURI: coreIndexURI, NumberOfOperations: len(ops)}

	return anchorData.String(), nil
}

func (h *OperationHandler) writeChunkFile(ops []*operation.Operation) (string, error) {
	chunk, err := models.CreateChunkFile(ops)
	if err != nil {
		return "", fmt.Errorf("create chunk file: %s", err.Error())
	}

	uri, err := h.writeJSON(chunk, h.protocol.MaxChunkFileSize)
	if err != nil {
		return "", fmt.Errorf("write chunk file: %s", err.Error())
	}

	return uri, nil
}

func (h *OperationHandler) writeCoreProofFile(recovers, deactivates []*operation.Operation) (string, error) {
	proof := models.CreateCoreProofFile(recovers, deactivates)
	if proof == nil {
		return "", nil
	}

	uri, err := h.writeJSON(proof, h.protocol.MaxProofFileSize)
	if err != nil {
		return "", fmt.Errorf("write core proof file: %s", err.Error())
	}

	return uri, nil
}

func (h *OperationHandler) writeProvisionalProofFile(updates []*operation.Operation) (string, error) {
	proof := models.CreateProvisionalProofFile(updates)
	if proof == nil {
		return "", nil
	}

	uri, err := h.writeJSON(proof, h.protocol.MaxProofFileSize)
	if err != nil {
		return "", fmt.Errorf("write provisional proof file: %s", err.Error())
	}

	return uri, nil
}

// writeJSON marshals model with encoding/json, compresses it, and writes it to CAS,
// rejecting it before upload if it exceeds maxSize uncompressed.
func (h *OperationHandler) writeJSON(model interface{}, maxSize uint) (string, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("marshal: %s", err.Error())
	}

	if uint(len(raw)) > maxSize {
		return "", fmt.Errorf("model size[%d] exceeds maximum size[%d]", len(raw), maxSize)
	}

	compressed, err := h.cp.Compress(h.protocol.CompressionAlgorithm, raw)
	if err != nil {
		return "", fmt.Errorf("compress: %s", err.Error())
	}

	return h.cas.Write(compressed)
}
