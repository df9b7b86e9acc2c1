/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package anchor defines the AnchorChain client contract (spec §6.1):
// the node's only point of contact with the underlying ledger.
package anchor

import "github.com/trustbloc/sidetree-svc-go/pkg/api/txn"

// ErrInvalidTransactionNumberOrTimeHash is returned by Read when the
// given cursor no longer matches the chain's history, signaling a
// possible reorg.
var ErrInvalidTransactionNumberOrTimeHash = chainError("invalid transaction number or time hash")

type chainError string

func (e chainError) Error() string { return string(e) }

// ReadResult is the paged result of a Read call.
type ReadResult struct {
	MoreTransactions bool
	Transactions     []*txn.Transaction
}

// Time is a point in ledger time, as returned by LatestTime.
type Time struct {
	Time uint64
	Hash string
}

// ValueTimeLock describes a writer's locked value, used to derive its
// allowed batch size (spec §4.5, "writerMaxBatchSize").
type ValueTimeLock struct {
	AmountLocked        uint64
	Identifier          string
	LockTransactionTime uint64
	NormalizedFee       uint64
	Owner               string
	UnlockTransactionTime uint64
}

// Client is the AnchorChain client every writer- and reader-side
// component depends on.
type Client interface {
	// Write anchors anchorString with at least minFee. It returns only
	// an error; the resulting transaction is seen later through Read.
	Write(anchorString string, minFee uint64) error

	// Read returns transactions strictly after (since, timeHash), or
	// ErrInvalidTransactionNumberOrTimeHash if that cursor is no longer
	// valid on the chain (a possible reorg).
	Read(since uint64, timeHash string) (*ReadResult, error)

	// FirstValid returns the first of transactions (checked in the
	// given order) still present on the chain, or nil if none are.
	FirstValid(transactions []*txn.Transaction) (*txn.Transaction, error)

	// LatestTime returns the chain's current tip time.
	LatestTime() (*Time, error)

	// WriterValueTimeLock returns this node's current value-time-lock,
	// or nil if it has none.
	WriterValueTimeLock() (*ValueTimeLock, error)
}
