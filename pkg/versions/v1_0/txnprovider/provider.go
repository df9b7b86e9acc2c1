/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txnprovider assembles and decomposes the file hierarchy a
// Sidetree batch is anchored as (spec §3 "File hierarchy", §4.5
// BatchWriter, §4.7 TransactionProcessor): the OperationProvider reads
// a transaction's anchor string and returns its operations; the
// OperationHandler is the BatchWriter's counterpart, building the
// hierarchy from a batch of parsed operations.
package txnprovider

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider/models"
)

// decompressionProvider decompresses CAS content, enforcing the
// memory-decompression cap.
type decompressionProvider interface {
	Decompress(alg string, data []byte, maxSize int64) ([]byte, error)
}

// downloader is the subset of download.Manager this package depends
// on: a bounded-concurrency, classified CAS read.
type downloader interface {
	Download(ctx context.Context, address string, maxSize uint64) (*download.Result, error)
}

// ErrFileNotFound signals a referenced batch file was confirmed absent
// or invalid (NotFound/MaxSizeExceeded/InvalidHash): not retryable, the
// transaction's contribution from that file is simply empty.
var ErrFileNotFound = errors.New("batch file not found, oversized, or hash-invalid")

// ErrRetryable signals a referenced batch file's fetch failed in a way
// that might succeed on a later attempt (CasNotReachable).
var ErrRetryable = errors.New("batch file temporarily unavailable")

// OperationProvider assembles a transaction's operations from its
// referenced batch files.
type OperationProvider struct {
	protocol protocol.Protocol
	dl       downloader
	dp       decompressionProvider
}

// NewOperationProvider creates a new OperationProvider.
func NewOperationProvider(p protocol.Protocol, dl downloader, dp decompressionProvider) *OperationProvider {
	return &OperationProvider{protocol: p, dl: dl, dp: dp}
}

// GetTxnOperations downloads and parses the batch's core-index,
// provisional-index, proof, and chunk files and returns the
// transaction's operations, unanchored (TransactionTime/Number/Index
// are filled in by the caller). A failed CAS fetch wraps
// ErrFileNotFound or ErrRetryable so callers (the Observer's
// TransactionProcessor) can tell a missing/invalid file from a
// transient fetch failure; parse and count errors wrap neither.
func (p *OperationProvider) GetTxnOperations(ctx context.Context, transaction *txn.Transaction) ([]*operation.Operation, error) {
	anchorData, err := models.ParseAnchorData(transaction.AnchorString)
	if err != nil {
		return nil, err
	}

	coreIndex, err := p.getCoreIndexFile(ctx, anchorData.CoreIndexFileURI)
	if err != nil {
		return nil, err
	}

	if err := p.validateWriterLock(coreIndex.WriterLockID); err != nil {
		return nil, err
	}

	if err := validateCoreIndexReferences(coreIndex); err != nil {
		return nil, err
	}

	creates, recovers, deactivates, err := p.coreOperationsFrom(coreIndex)
	if err != nil {
		return nil, err
	}

	var coreProof *models.CoreProofFile

	if coreIndex.CoreProofFileURI != "" {
		coreProof, err = p.getCoreProofFile(ctx, coreIndex.CoreProofFileURI)
		if err != nil {
			return nil, err
		}
	}

	if err := zipProofsIntoCoreOperations(recovers, deactivates, coreProof); err != nil {
		return nil, err
	}

	var updates []*operation.Operation

	var chunk *models.ChunkFile

	if coreIndex.ProvisionalIndexFileURI != "" {
		provisionalIndex, err := p.getProvisionalIndexFile(ctx, coreIndex.ProvisionalIndexFileURI)
		if err != nil {
			return nil, err
		}

		if len(provisionalIndex.Chunks) != 1 {
			return nil, fmt.Errorf("expected exactly one chunk file reference, got %d", len(provisionalIndex.Chunks))
		}

		chunk, err = p.getChunkFile(ctx, provisionalIndex.Chunks[0].ChunkFileURI)
		if err != nil {
			return nil, err
		}

		updates = updateOperationsFrom(provisionalIndex)

		if provisionalIndex.ProvisionalProofFileURI != "" {
			provisionalProof, err := p.getProvisionalProofFile(ctx, provisionalIndex.ProvisionalProofFileURI)
			if err != nil {
				return nil, err
			}

			if err := zipProofsIntoUpdateOperations(updates, provisionalProof); err != nil {
				return nil, err
			}
		}
	}

	ops := make([]*operation.Operation, 0, len(creates)+len(recovers)+len(updates)+len(deactivates))
	ops = append(ops, creates...)
	ops = append(ops, recovers...)
	ops = append(ops, updates...)

	if chunk != nil {
		if len(chunk.Deltas) != len(ops) {
			return nil, fmt.Errorf("chunk file delta count[%d] doesn't match create+recover+update count[%d]",
				len(chunk.Deltas), len(ops))
		}

		for i, encoded := range chunk.Deltas {
			delta, err := models.DecodeDelta(encoded)
			if err != nil {
				return nil, err
			}

			ops[i].Delta = delta
		}
	}

	ops = append(ops, deactivates...)

	if len(ops) != anchorData.NumberOfOperations {
		return nil, fmt.Errorf("number of operations[%d] doesn't match anchor string count[%d]",
			len(ops), anchorData.NumberOfOperations)
	}

	for _, op := range ops {
		op.Namespace = transaction.Namespace
	}

	return ops, nil
}

func validateCoreIndexReferences(coreIndex *models.CoreIndexFile) error {
	hasCreatesOrRecovers := coreIndex.Operations != nil &&
		(len(coreIndex.Operations.Create) > 0 || len(coreIndex.Operations.Recover) > 0)

	if hasCreatesOrRecovers && coreIndex.ProvisionalIndexFileURI == "" {
		return errors.New("provisional index file uri is required when there are creates or recovers")
	}

	return nil
}

// suffixMultihashCode picks the multihash code used to derive unique
// suffixes and reveal values: the first algorithm in this version's
// accepted list, matching the code the OperationParser used to accept
// the same values on submission.
func (p *OperationProvider) suffixMultihashCode() uint {
	if len(p.protocol.MultihashAlgorithms) == 0 {
		return 0
	}

	return p.protocol.MultihashAlgorithms[0]
}

func (p *OperationProvider) coreOperationsFrom(
	coreIndex *models.CoreIndexFile,
) (creates, recovers, deactivates []*operation.Operation, err error) {
	if coreIndex.Operations == nil {
		return nil, nil, nil, nil
	}

	code := p.suffixMultihashCode()

	for _, ref := range coreIndex.Operations.Create {
		suffix, err := hashing.CalculateSuffix(ref.SuffixData, code)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("calculate unique suffix: %s", err.Error())
		}

		creates = append(creates, &operation.Operation{
			Type:         operation.TypeCreate,
			UniqueSuffix: suffix,
			SuffixData:   ref.SuffixData,
		})
	}

	for _, ref := range coreIndex.Operations.Recover {
		recovers = append(recovers, &operation.Operation{
			Type:         operation.TypeRecover,
			UniqueSuffix: ref.UniqueSuffix,
			RevealValue:  ref.RevealValue,
		})
	}

	for _, ref := range coreIndex.Operations.Deactivate {
		deactivates = append(deactivates, &operation.Operation{
			Type:         operation.TypeDeactivate,
			UniqueSuffix: ref.UniqueSuffix,
			RevealValue:  ref.RevealValue,
		})
	}

	return creates, recovers, deactivates, nil
}

func updateOperationsFrom(provisionalIndex *models.ProvisionalIndexFile) []*operation.Operation {
	if provisionalIndex.Operations == nil {
		return nil
	}

	updates := make([]*operation.Operation, 0, len(provisionalIndex.Operations.Update))

	for _, ref := range provisionalIndex.Operations.Update {
		updates = append(updates, &operation.Operation{
			Type:         operation.TypeUpdate,
			UniqueSuffix: ref.UniqueSuffix,
			RevealValue:  ref.RevealValue,
		})
	}

	return updates
}

// zipProofsIntoCoreOperations pairs the core proof file's recover and
// deactivate JWS entries, in order, with their operation references.
func zipProofsIntoCoreOperations(recovers, deactivates []*operation.Operation, proof *models.CoreProofFile) error {
	if len(recovers) == 0 && len(deactivates) == 0 {
		return nil
	}

	if proof == nil {
		return errors.New("missing core proof file")
	}

	if len(proof.Operations.Recover) != len(recovers) {
		return fmt.Errorf("core proof file recover count[%d] doesn't match core index recover count[%d]",
			len(proof.Operations.Recover), len(recovers))
	}

	for i, entry := range proof.Operations.Recover {
		recovers[i].SignedData = entry.SignedData
	}

	if len(proof.Operations.Deactivate) != len(deactivates) {
		return fmt.Errorf("core proof file deactivate count[%d] doesn't match core index deactivate count[%d]",
			len(proof.Operations.Deactivate), len(deactivates))
	}

	for i, entry := range proof.Operations.Deactivate {
		deactivates[i].SignedData = entry.SignedData
	}

	return nil
}

// zipProofsIntoUpdateOperations pairs the provisional proof file's
// update JWS entries, in order, with their operation references.
func zipProofsIntoUpdateOperations(updates []*operation.Operation, proof *models.ProvisionalProofFile) error {
	if len(updates) == 0 {
		return nil
	}

	if proof == nil {
		return errors.New("missing provisional proof file")
	}

	if len(proof.Operations.Update) != len(updates) {
		return fmt.Errorf("provisional proof file update count[%d] doesn't match provisional index update count[%d]",
			len(proof.Operations.Update), len(updates))
	}

	for i, entry := range proof.Operations.Update {
		updates[i].SignedData = entry.SignedData
	}

	return nil
}

// validateWriterLock is a hook for batch writer-lock policy
// enforcement (spec §4.5, "writerLockId"); this protocol version only
// rejects an id longer than MaxWriterLockIDBytes, leaving any other
// acceptance policy to the AnchorChain layer.
func (p *OperationProvider) validateWriterLock(writerLockID string) error {
	if uint(len(writerLockID)) > p.protocol.MaxWriterLockIDBytes {
		return fmt.Errorf("writer lock id exceeds maximum size %d", p.protocol.MaxWriterLockIDBytes)
	}

	return nil
}

func (p *OperationProvider) getCoreIndexFile(ctx context.Context, uri string) (*models.CoreIndexFile, error) {
	content, err := p.readFromCAS(ctx, uri, p.protocol.MaxCoreIndexFileSize)
	if err != nil {
		return nil, fmt.Errorf("retrieve core index file: %s", err.Error())
	}

	return models.ParseCoreIndexFile(content)
}

func (p *OperationProvider) getProvisionalIndexFile(ctx context.Context, uri string) (*models.ProvisionalIndexFile, error) {
	content, err := p.readFromCAS(ctx, uri, p.protocol.MaxProvisionalIndexFileSize)
	if err != nil {
		return nil, fmt.Errorf("retrieve provisional index file: %s", err.Error())
	}

	return models.ParseProvisionalIndexFile(content)
}

func (p *OperationProvider) getCoreProofFile(ctx context.Context, uri string) (*models.CoreProofFile, error) {
	content, err := p.readFromCAS(ctx, uri, p.protocol.MaxProofFileSize)
	if err != nil {
		return nil, fmt.Errorf("retrieve core proof file: %s", err.Error())
	}

	return models.ParseCoreProofFile(content)
}

func (p *OperationProvider) getProvisionalProofFile(ctx context.Context, uri string) (*models.ProvisionalProofFile, error) {
	content, err := p.readFromCAS(ctx, uri, p.protocol.MaxProofFileSize)
	if err != nil {
		return nil, fmt.Errorf("retrieve provisional proof file: %s", err.Error())
	}

	return models.ParseProvisionalProofFile(content)
}

func (p *OperationProvider) getChunkFile(ctx context.Context, uri string) (*models.ChunkFile, error) {
	content, err := p.readFromCAS(ctx, uri, p.protocol.MaxChunkFileSize)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunk file: %s", err.Error())
	}

	return models.ParseChunkFile(content)
}

// readFromCAS downloads address through the bounded-concurrency
// downloader, classifying a non-Success outcome into ErrFileNotFound
// (not retryable) or ErrRetryable, then decompresses the content,
// enforcing maxSize as the compressed-size budget the decompression
// cap is derived from.
func (p *OperationProvider) readFromCAS(ctx context.Context, address string, maxSize uint) ([]byte, error) {
	if uint(len(address)) > p.protocol.MaxCasURILength {
		return nil, fmt.Errorf("cas uri exceeds maximum length %d", p.protocol.MaxCasURILength)
	}

	result, err := p.dl.Download(ctx, address, uint64(maxSize))
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case download.Success:
	case download.CasNotReachable:
		return nil, fmt.Errorf("%w: %s", ErrRetryable, address)
	default:
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, address)
	}

	decompressMax := int64(maxSize) * int64(p.protocol.MaxMemoryDecompressionFactor)

	return p.dp.Decompress(p.protocol.CompressionAlgorithm, result.Content, decompressMax)
}
