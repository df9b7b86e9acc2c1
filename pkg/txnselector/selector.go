/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txnselector implements the TransactionSelector (spec §4.6):
// a per-block throughput limiter applied to the batch of transactions
// the Observer reads for a single ledger block, before any of them are
// dispatched to the TransactionProcessor.
package txnselector

import (
	"sort"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
)

var logger = log.New("txnselector")

// AnchorStringDecoder decodes a transaction's anchorString into the
// operation count it carries. Satisfied by
// txnprovider/models.OperationCount for protocol version 1.0; kept as
// an interface here so this package stays independent of any one
// protocol version's wire format.
type AnchorStringDecoder interface {
	OperationCount(anchorString string) (int, error)
}

// DecoderFunc adapts a plain function to AnchorStringDecoder.
type DecoderFunc func(anchorString string) (int, error)

// OperationCount implements AnchorStringDecoder.
func (f DecoderFunc) OperationCount(anchorString string) (int, error) { return f(anchorString) }

// Selector is a per-version TransactionSelector instance: its caps and
// decoder are both specific to the protocol version active at the
// block being selected over.
type Selector struct {
	decoder                 AnchorStringDecoder
	maxOperationsPerBlock   uint
	maxTransactionsPerBlock uint
	txStore                 store.TransactionStore
}

// New creates a Selector bound to one protocol version's per-block
// caps and anchor-string format.
func New(decoder AnchorStringDecoder, maxOperationsPerBlock, maxTransactionsPerBlock uint, txStore store.TransactionStore) *Selector {
	return &Selector{
		decoder:                 decoder,
		maxOperationsPerBlock:   maxOperationsPerBlock,
		maxTransactionsPerBlock: maxTransactionsPerBlock,
		txStore:                 txStore,
	}
}

// SelectTransactions applies the one-writer-per-block rule, orders the
// survivors by fee priority, subtracts operations/transactions already
// admitted at this block from the running caps, and returns the
// selected transactions in ascending TransactionNumber order.
func (s *Selector) SelectTransactions(transactions []*txn.Transaction) ([]*txn.Transaction, error) {
	perWriter := s.oneWriterPerBlock(transactions)

	sort.SliceStable(perWriter, func(i, j int) bool {
		if perWriter[i].FeePaid != perWriter[j].FeePaid {
			return perWriter[i].FeePaid > perWriter[j].FeePaid
		}

		return perWriter[i].TransactionNumber < perWriter[j].TransactionNumber
	})

	usedOps, usedTxns, err := s.alreadyAdmitted(transactions)
	if err != nil {
		return nil, err
	}

	var selected []*txn.Transaction

	for _, t := range perWriter {
		count, err := s.decoder.OperationCount(t.AnchorString)
		if err != nil {
			logger.Warn("decode anchor string failed, excluding transaction",
				logfields.WithTransaction(t.TransactionNumber), log.WithError(err))

			continue
		}

		if usedOps+count > int(s.maxOperationsPerBlock) || usedTxns+1 > int(s.maxTransactionsPerBlock) {
			logger.Info("transaction exceeds per-block cap, excluding",
				logfields.WithTransaction(t.TransactionNumber))

			continue
		}

		usedOps += count
		usedTxns++

		selected = append(selected, t)
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].TransactionNumber < selected[j].TransactionNumber
	})

	return selected, nil
}

// oneWriterPerBlock keeps the first-seen transaction per writer,
// logging the rest. Transactions with no writer identifier bypass the
// rule (each is its own group).
func (s *Selector) oneWriterPerBlock(transactions []*txn.Transaction) []*txn.Transaction {
	seen := make(map[string]bool)

	out := make([]*txn.Transaction, 0, len(transactions))

	for _, t := range transactions {
		if t.Writer == "" {
			out = append(out, t)

			continue
		}

		if seen[t.Writer] {
			logger.Info("dropping additional transaction from writer in the same block",
				logfields.WithTransaction(t.TransactionNumber))

			continue
		}

		seen[t.Writer] = true
		out = append(out, t)
	}

	return out
}

// alreadyAdmitted returns the operation and transaction counts already
// durably recorded at the block these transactions belong to, so a
// resumed partial block doesn't double-admit past the caps.
func (s *Selector) alreadyAdmitted(transactions []*txn.Transaction) (ops, txns int, err error) {
	if len(transactions) == 0 {
		return 0, 0, nil
	}

	stored, err := s.txStore.AtBlock(transactions[0].TransactionTime)
	if err != nil {
		return 0, 0, err
	}

	for _, t := range stored {
		count, err := s.decoder.OperationCount(t.AnchorString)
		if err != nil {
			continue
		}

		ops += count
		txns++
	}

	return ops, txns, nil
}
