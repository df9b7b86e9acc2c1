/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package observer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider"
)

// outcome is the result of a TransactionProcessor attempt.
type outcome int

const (
	// outcomeSuccess means the transaction's operations (possibly none,
	// if a referenced file was confirmed absent or invalid) have been
	// durably recorded in the OperationStore.
	outcomeSuccess outcome = iota

	// outcomeRetry means a file this transaction depends on could not be
	// reached, or its operations could not be written to the
	// OperationStore, and the attempt is rescheduled with backoff.
	outcomeRetry
)

// process implements the TransactionProcessor (spec §4.7): it resolves
// the protocol version active at the transaction's time, downloads and
// parses its batch files, and anchors the resulting operations into
// opStore. A confirmed-absent or invalid file contributes no
// operations and is still a success; a file that could not be reached,
// or a failed OperationStore write, is a retry.
func process(
	ctx context.Context,
	versions *protocolversion.Manager,
	opStore store.OperationStore,
	transaction *txn.Transaction,
) outcome {
	v, err := versions.VersionAt(transaction.TransactionTime)
	if err != nil {
		logger.Warn("no protocol version for transaction, skipping",
			logfields.WithTransaction(transaction.TransactionNumber), log.WithError(err))

		return outcomeSuccess
	}

	ops, err := v.OperationProvider().GetTxnOperations(ctx, transaction)
	if err != nil {
		if errors.Is(err, txnprovider.ErrRetryable) {
			logger.Info("transaction batch file temporarily unreachable, will retry",
				logfields.WithTransaction(transaction.TransactionNumber), log.WithError(err))

			return outcomeRetry
		}

		// ErrFileNotFound and any parse/validation error are treated as a
		// permanently invalid transaction: it anchors no operations, but
		// the ledger cursor still advances past it.
		logger.Warn("transaction batch invalid, anchoring no operations",
			logfields.WithTransaction(transaction.TransactionNumber), log.WithError(err))

		return outcomeSuccess
	}

	if len(ops) == 0 {
		return outcomeSuccess
	}

	anchored := anchorOperations(ops, transaction)

	if err := opStore.Put(anchored); err != nil {
		logger.Warn("persist anchored operations failed, will retry",
			logfields.WithTransaction(transaction.TransactionNumber), log.WithError(err))

		return outcomeRetry
	}

	return outcomeSuccess
}

// anchorOperations stamps each parsed operation with its ledger
// coordinates within the anchoring transaction.
func anchorOperations(ops []*operation.Operation, transaction *txn.Transaction) []*operation.AnchoredOperation {
	anchored := make([]*operation.AnchoredOperation, len(ops))

	for i, op := range ops {
		anchored[i] = &operation.AnchoredOperation{
			Type:               op.Type,
			UniqueSuffix:       op.UniqueSuffix,
			OperationRequest:   op.OperationRequest,
			SignedData:         op.SignedData,
			RevealValue:        op.RevealValue,
			Delta:              op.Delta,
			SuffixData:         op.SuffixData,
			AnchorOrigin:       op.AnchorOrigin,
			TransactionTime:    transaction.TransactionTime,
			TransactionNumber:  transaction.TransactionNumber,
			OperationIndex:     uint(i),
			CanonicalReference: transaction.TransactionTimeHash,
		}
	}

	return anchored
}
