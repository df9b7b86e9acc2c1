/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package observer

import (
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

// reorgSampleBase is the starting step between reorg probe samples,
// doubled on every step walking backwards from the tip.
const reorgSampleBase = 1

// reorg walks the TransactionStore from newest backwards in
// exponentially spaced samples, asks the AnchorChain for the best
// still-valid one, and rolls every store back above it (spec §4.7,
// "Reorg handling").
func (o *Observer) reorg() {
	logger.Info("potential reorg detected, searching for last valid transaction")

	samples, err := o.probeSamples()
	if err != nil {
		logger.Warn("read recent transactions for reorg probe failed", log.WithError(err))

		return
	}

	var validTransactionNumber uint64

	var validTimeHash string

	if len(samples) > 0 {
		valid, err := o.chain.FirstValid(samples)
		if err != nil {
			logger.Warn("determine first valid transaction failed", log.WithError(err))

			return
		}

		if valid != nil {
			validTransactionNumber = valid.TransactionNumber
			validTimeHash = valid.TransactionTimeHash
		}
	}

	if err := o.opStore.DeleteAbove(validTransactionNumber); err != nil {
		logger.Warn("roll back operation store failed", log.WithError(err))

		return
	}

	if err := o.txStore.DeleteAbove(validTransactionNumber); err != nil {
		logger.Warn("roll back transaction store failed", log.WithError(err))

		return
	}

	if err := o.unresolvableStore.DeleteAbove(validTransactionNumber); err != nil {
		logger.Warn("roll back unresolvable transaction store failed", log.WithError(err))

		return
	}

	o.cursorMutex.Lock()
	o.pending = nil
	o.lastKnownTransactionNumber = validTransactionNumber
	o.lastKnownTransactionTimeHash = validTimeHash
	o.cursorMutex.Unlock()

	logger.Info("reorg rollback complete, resuming from last valid transaction")
}

// probeSamples collects exponentially spaced transactions from the
// TransactionStore, newest first, as candidates for
// AnchorChain.FirstValid.
func (o *Observer) probeSamples() ([]*txn.Transaction, error) {
	last, err := o.txStore.Last()
	if err != nil {
		return nil, err
	}

	if last == nil {
		return nil, nil
	}

	var samples []*txn.Transaction

	step := reorgSampleBase
	before := last.TransactionNumber + 1

	for {
		batch, err := o.txStore.RecentBefore(before-1, 1)
		if err != nil {
			return nil, err
		}

		if len(batch) == 0 {
			break
		}

		samples = append(samples, batch[0])

		if batch[0].TransactionNumber == 0 {
			break
		}

		if uint64(step) >= before {
			break
		}

		before -= uint64(step)
		step *= 2
	}

	return samples, nil
}
