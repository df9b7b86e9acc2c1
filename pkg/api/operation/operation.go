/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operation defines the core operation model shared by every
// protocol version: a tagged variant (Type) plus the fields a parser
// fills in for each of the four named operation kinds.
package operation

import "github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"

// Type defines the type of a Sidetree operation.
type Type string

const (
	// TypeCreate captures "create" operation type.
	TypeCreate Type = "create"

	// TypeUpdate captures "update" operation type.
	TypeUpdate Type = "update"

	// TypeDeactivate captures "deactivate" operation type.
	TypeDeactivate Type = "deactivate"

	// TypeRecover captures "recover" operation type.
	TypeRecover Type = "recover"
)

// Operation is the parsed form of a single operation request, before it
// has been anchored to the ledger. It is produced by a version's
// OperationParser and consumed by the BatchWriter admission queue and,
// for Create, by the document handler's immediate response path.
type Operation struct {
	// Type of operation.
	Type Type

	// Namespace is the DID method namespace this operation belongs to.
	Namespace string

	// ID is the full DID (namespace + unique suffix).
	ID string

	// UniqueSuffix is the DID's unique suffix.
	UniqueSuffix string

	// OperationRequest is the original, unparsed operation request bytes.
	OperationRequest []byte

	// SignedData is the compact JWS carrying the operation's signed payload.
	// Empty for Create.
	SignedData string

	// RevealValue is the multihash whose preimage authorizes this operation.
	// Empty for Create.
	RevealValue string

	// Delta carries the patches and next update commitment. Present for
	// Create, Update, Recover; absent for Deactivate.
	Delta *DeltaModel

	// SuffixData carries the recovery commitment and delta hash. Present
	// only for Create.
	SuffixData *SuffixDataModel

	// AnchorOrigin is an opaque hint of the system that anchored this
	// operation most recently (optional, carried through from signed data).
	AnchorOrigin interface{}

	// AnchorFrom/AnchorUntil bound the time window in which this operation
	// is still eligible to be anchored (optional; 0 means unbounded).
	AnchorFrom  int64
	AnchorUntil int64
}

// DeltaModel is the patch payload common to Create, Update, and Recover.
type DeltaModel struct {
	UpdateCommitment string        `json:"updateCommitment,omitempty"`
	Patches          []patch.Patch `json:"patches,omitempty"`
}

// SuffixDataModel is the Create-only payload used to derive the DID's
// unique suffix.
type SuffixDataModel struct {
	DeltaHash          string      `json:"deltaHash,omitempty"`
	RecoveryCommitment string      `json:"recoveryCommitment,omitempty"`
	AnchorOrigin       interface{} `json:"anchorOrigin,omitempty"`
	Type               string      `json:"type,omitempty"`
}

// Reference is the minimal pairing of a DID suffix with its reveal
// value, as stored in the core/provisional index files for non-create
// operations.
type Reference struct {
	UniqueSuffix string `json:"didSuffix"`
	RevealValue  string `json:"revealValue"`
}

// AnchoredOperation is an Operation plus the ledger coordinates it was
// anchored at. Two anchored operations belonging to the same DID are
// ordered lexicographically by (TransactionTime, TransactionNumber,
// OperationIndex).
type AnchoredOperation struct {
	Type             Type   `json:"type"`
	UniqueSuffix     string `json:"uniqueSuffix"`
	OperationRequest []byte `json:"operationRequest,omitempty"`

	SignedData  string `json:"signedData,omitempty"`
	RevealValue string `json:"revealValue,omitempty"`

	Delta      *DeltaModel      `json:"delta,omitempty"`
	SuffixData *SuffixDataModel `json:"suffixData,omitempty"`

	AnchorOrigin interface{} `json:"anchorOrigin,omitempty"`

	// TransactionTime is the ledger block height the batch was anchored at.
	TransactionTime uint64 `json:"transactionTime"`

	// TransactionNumber is the strictly increasing ledger transaction number
	// of the anchoring transaction.
	TransactionNumber uint64 `json:"transactionNumber"`

	// OperationIndex is this operation's position within the anchoring batch.
	OperationIndex uint `json:"operationIndex"`

	// CanonicalReference is non-empty once the operation has been durably
	// recorded in the TransactionStore (as opposed to only living in the
	// unpublished operation store).
	CanonicalReference string `json:"canonicalReference,omitempty"`
}

// Less orders two anchored operations of the same DID by canonical
// (transactionTime, transactionNumber, operationIndex) order.
func Less(a, b *AnchoredOperation) bool {
	if a.TransactionTime != b.TransactionTime {
		return a.TransactionTime < b.TransactionTime
	}

	if a.TransactionNumber != b.TransactionNumber {
		return a.TransactionNumber < b.TransactionNumber
	}

	return a.OperationIndex < b.OperationIndex
}
