/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocks provides in-memory pkg/api/anchor.Client and
// pkg/api/cas.Client implementations for tests and for running
// cmd/sidetree-node against a local, single-process ledger stand-in.
package mocks

import (
	"strconv"
	"sync"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

// AnchorChain is an in-memory anchor.Client: every Write is
// immediately readable as its own one-transaction block, numbered and
// timed sequentially. It never reorgs, so FirstValid always returns
// the first transaction it's given.
type AnchorChain struct {
	mu       sync.RWMutex
	writes   []string
	writeErr error
}

// NewAnchorChain creates an empty AnchorChain. A non-nil writeErr is
// returned by every Write call, for exercising writer failure paths.
func NewAnchorChain(writeErr error) *AnchorChain {
	return &AnchorChain{writeErr: writeErr}
}

// Write anchors anchorString as the next sequential transaction.
func (c *AnchorChain) Write(anchorString string, _ uint64) error {
	if c.writeErr != nil {
		return c.writeErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = append(c.writes, anchorString)

	return nil
}

// Read returns every transaction strictly after since. The time hash
// argument is ignored, since this chain never reorgs.
func (c *AnchorChain) Read(since uint64, _ string) (*anchor.ReadResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*txn.Transaction

	for i := int(since); i < len(c.writes); i++ {
		out = append(out, c.transactionAt(i))
	}

	return &anchor.ReadResult{Transactions: out}, nil
}

func (c *AnchorChain) transactionAt(i int) *txn.Transaction {
	n := uint64(i + 1) //nolint:gosec

	return &txn.Transaction{
		TransactionNumber:   n,
		TransactionTime:     n,
		TransactionTimeHash: strconv.FormatUint(n, 10),
		AnchorString:        c.writes[i],
	}
}

// FirstValid returns the first of transactions, since this chain never
// reorgs and so never invalidates a transaction it already returned.
func (c *AnchorChain) FirstValid(transactions []*txn.Transaction) (*txn.Transaction, error) {
	if len(transactions) == 0 {
		return nil, nil //nolint:nilnil
	}

	return transactions[0], nil
}

// LatestTime returns the chain's current tip.
func (c *AnchorChain) LatestTime() (*anchor.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := uint64(len(c.writes)) //nolint:gosec

	return &anchor.Time{Time: n, Hash: strconv.FormatUint(n, 10)}, nil
}

// WriterValueTimeLock always reports no lock, so the BatchWriter caps
// its batch size at the protocol maximum.
func (c *AnchorChain) WriterValueTimeLock() (*anchor.ValueTimeLock, error) {
	return nil, nil //nolint:nilnil
}
