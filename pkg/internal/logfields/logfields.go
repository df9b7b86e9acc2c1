/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logfields provides typed structured-logging field
// constructors shared across the node's packages, built on top of
// logutil-go's generic field type.
package logfields

import (
	"github.com/trustbloc/logutil-go/pkg/log"
)

// WithSuffix returns a field carrying a DID unique suffix.
func WithSuffix(suffix string) log.Field {
	return log.WithField("suffix", suffix)
}

// WithOperationID returns a field carrying an operation/DID id.
func WithOperationID(id string) log.Field {
	return log.WithField("operationID", id)
}

// WithOperationType returns a field carrying an operation type.
func WithOperationType(opType string) log.Field {
	return log.WithField("operationType", opType)
}

// WithTransaction returns a field carrying a ledger transaction number.
func WithTransaction(transactionNumber uint64) log.Field {
	return log.WithField("transactionNumber", transactionNumber)
}

// WithTransactionTime returns a field carrying a ledger transaction time.
func WithTransactionTime(transactionTime uint64) log.Field {
	return log.WithField("transactionTime", transactionTime)
}

// WithTotal returns a field carrying a count.
func WithTotal(total int) log.Field {
	return log.WithField("total", total)
}

// WithURI returns a field carrying a CAS URI.
func WithURI(uri string) log.Field {
	return log.WithField("uri", uri)
}

// WithResolutionModel returns a field carrying a resolved internal
// document state, for debug-level diagnostics.
func WithResolutionModel(model interface{}) log.Field {
	return log.WithField("resolutionModel", model)
}
