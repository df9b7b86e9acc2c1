/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package protocol defines the versioned parameter set (spec §4.1)
// and the capability bundle each protocol version exposes to the rest
// of the node.
package protocol

// Protocol is the set of tunable knobs active for a range of ledger
// time, as loaded from the protocol-parameters configuration.
type Protocol struct {
	// GenesisTime is the starting ledger time (inclusive) this
	// parameter set becomes active at.
	GenesisTime uint64 `json:"genesisTime"`

	// VersionID names this parameter set (e.g. "1.0").
	VersionID string `json:"versionId"`

	// MultihashAlgorithms lists the multihash codes accepted for
	// commitments/reveal values/suffix derivation in this version.
	MultihashAlgorithms []uint `json:"multihashAlgorithms"`

	// Patches lists the patch actions accepted by this version's delta
	// validator (e.g. "replace", "add-public-keys", "ietf-json-patch").
	Patches []string `json:"patches"`

	// MaxOperationCount bounds operations admitted per anchored batch.
	MaxOperationCount uint `json:"maxOperationCount"`

	// MaxOperationSize is the maximum byte size of a single operation
	// request, checked before JSON parsing.
	MaxOperationSize uint `json:"maxOperationSize"`

	// MaxOperationHashLength bounds didSuffix/revealValue/commitment length.
	MaxOperationHashLength uint `json:"maxOperationHashLength"`

	// MaxDeltaSize bounds the encoded delta payload.
	MaxDeltaSize uint `json:"maxDeltaSize"`

	// MaxCasURILength bounds CAS URI strings referenced from index files.
	MaxCasURILength uint `json:"maxCasUriLength"`

	// MaxCoreIndexFileSize bounds the core index file, post-decompression.
	MaxCoreIndexFileSize uint `json:"maxCoreIndexFileSize"`

	// MaxProvisionalIndexFileSize bounds the provisional index file.
	MaxProvisionalIndexFileSize uint `json:"maxProvisionalIndexFileSize"`

	// MaxProofFileSize bounds core/provisional proof files.
	MaxProofFileSize uint `json:"maxProofFileSize"`

	// MaxChunkFileSize bounds the chunk file, post-decompression.
	MaxChunkFileSize uint `json:"maxChunkFileSize"`

	// MaxMemoryDecompressionFactor bounds the decompressed size relative
	// to the compressed file's declared maximum.
	MaxMemoryDecompressionFactor uint `json:"maxMemoryDecompressionFactor"`

	// MaxOperationsPerBlock bounds total operations admitted per ledger block.
	MaxOperationsPerBlock uint `json:"maxOperationsPerBlock"`

	// MaxTransactionsPerBlock bounds transactions selected per ledger block.
	MaxTransactionsPerBlock uint `json:"maxTransactionsPerBlock"`

	// MaxWriterLockIDBytes bounds the optional writer lock id.
	MaxWriterLockIDBytes uint `json:"maxWriterLockIdBytes"`

	// NormalizedFeeToPerOperationFeeMultiplier scales the ledger's
	// normalized fee into a per-operation fee floor for batch anchoring.
	NormalizedFeeToPerOperationFeeMultiplier uint `json:"normalizedFeeToPerOperationFeeMultiplier"`

	// ValueTimeLockAmountMultiplier scales a writer's locked value into
	// its allowed writerMaxBatchSize.
	ValueTimeLockAmountMultiplier uint `json:"valueTimeLockAmountMultiplier"`

	// SignatureAlgorithms lists the accepted JWS "alg" header values.
	SignatureAlgorithms []string `json:"signatureAlgorithms"`

	// KeyAlgorithms lists the accepted JWK "crv" values.
	KeyAlgorithms []string `json:"keyAlgorithms"`

	// NonceSize is the expected decoded length, in bytes, of an optional
	// signing-key nonce.
	NonceSize uint `json:"nonceSize"`

	// CompressionAlgorithm names the file hierarchy's compression codec.
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}

// ErrProtocolVersionNotFound is returned when no protocol version is
// active at a requested ledger time.
type ErrProtocolVersionNotFound struct {
	LedgerTime uint64
}

func (e *ErrProtocolVersionNotFound) Error() string {
	return "protocol version not found for the given transaction time"
}

// AnchorDocument is a CAS-addressed document referenced by a batch,
// surfaced to the AnchorChain client so it can, e.g., pre-announce
// the batch's content addresses.
type AnchorDocument struct {
	ID      string
	Data    []byte
	CIDFunc func() (string, error)
}
