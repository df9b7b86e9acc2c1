/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package store defines the four persistence contracts the node
// depends on (spec §6.4, §5 "Shared-resource policy"): OperationStore,
// TransactionStore, UnresolvableTransactionStore, and ServiceStateStore.
// Concrete implementations live under pkg/storage.
package store

import (
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

// OperationStore holds every anchored operation, keyed by DID unique
// suffix. Insertion is an upsert on (didUniqueSuffix, transactionNumber,
// operationIndex); deletes are range-deletes by transactionNumber cutoff.
type OperationStore interface {
	Put(ops []*operation.AnchoredOperation) error
	Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error)
	DeleteAbove(transactionNumber uint64) error
}

// TransactionStore holds the contiguous, strictly-monotone history of
// processed transactions. Insertion of an already-present transaction
// number is a no-op.
type TransactionStore interface {
	Put(t *txn.Transaction) error
	Last() (*txn.Transaction, error)
	// RecentBefore returns up to limit of the most recent transactions
	// with TransactionNumber <= before, newest first, used by the
	// Observer's exponentially-spaced reorg search.
	RecentBefore(before uint64, limit int) ([]*txn.Transaction, error)
	// AtBlock returns the transactions already stored at the given
	// TransactionTime, used by the TransactionSelector to subtract
	// already-admitted operations/transactions from a block's caps when
	// resuming a partially-committed block.
	AtBlock(transactionTime uint64) ([]*txn.Transaction, error)
	DeleteAbove(transactionNumber uint64) error
}

// UnresolvableTransaction is a transaction whose processing needs
// retrying, tracked with its retry schedule.
type UnresolvableTransaction struct {
	Transaction   *txn.Transaction
	Attempts      int
	FirstFetchTime int64
	NextRetryTime  int64
}

// UnresolvableTransactionStore holds transactions pending retry,
// indexed by NextRetryTime. Upsert is keyed on (transactionTime,
// transactionNumber).
type UnresolvableTransactionStore interface {
	Put(t *UnresolvableTransaction) error
	GetDueForRetry(now int64) ([]*UnresolvableTransaction, error)
	DeleteAbove(transactionNumber uint64) error
}

// ServiceState is the node's single persisted state document (spec
// §6.4): the schema version applied to the stores, and the last
// cached ledger time.
type ServiceState struct {
	DatabaseVersion int
	ApproximateTime uint64
	ApproximateHash string
}

// ServiceStateStore holds the single ServiceState document. Reads and
// writes are full-document replacements.
type ServiceStateStore interface {
	Get() (*ServiceState, error)
	Put(s *ServiceState) error
}
