/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package processor implements the Resolver (spec §4.8): it folds a
// DID's anchored operations, in canonical order, into external
// resolution state.
package processor

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doctransformer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/operationapplier"
	"github.com/trustbloc/logutil-go/pkg/log"
)

var logger = log.New("processor")

// OperationStore returns all anchored operations known for a DID suffix.
type OperationStore interface {
	Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error)
}

// OperationApplier folds a single anchored operation onto a state.
type OperationApplier interface {
	Apply(op *operation.AnchoredOperation, state *operationapplier.State) (*operationapplier.State, error)
}

// VersionGetter resolves the OperationApplier active at a given ledger
// time (protocol versions may change the fold semantics over time).
type VersionGetter interface {
	ApplierAt(transactionTime uint64) (OperationApplier, error)
}

// ResolutionOptions tune a single Resolve call.
type ResolutionOptions struct {
	AdditionalOperations []*operation.AnchoredOperation
	VersionID            string
	VersionTime          string
}

// ResolutionOption configures ResolutionOptions.
type ResolutionOption func(*ResolutionOptions)

// WithAdditionalOperations folds in operations not yet in the
// OperationStore (e.g. operations still sitting in the BatchWriter's
// admission queue), so resolution sees the most current state.
func WithAdditionalOperations(ops []*operation.AnchoredOperation) ResolutionOption {
	return func(o *ResolutionOptions) { o.AdditionalOperations = ops }
}

// WithVersionID resolves the document as of a specific operation's
// canonical reference (its CanonicalReference must match).
func WithVersionID(versionID string) ResolutionOption {
	return func(o *ResolutionOptions) { o.VersionID = versionID }
}

// WithVersionTime resolves the document as of a specific point in
// ledger time, dropping any operation anchored after it.
func WithVersionTime(versionTime string) ResolutionOption {
	return func(o *ResolutionOptions) { o.VersionTime = versionTime }
}

// ErrDeactivated signals the DID resolved to a tombstoned state.
var ErrDeactivated = errors.New("did is deactivated")

// ErrNotFound signals no create operation was ever recorded for the suffix.
var ErrNotFound = errors.New("did not found")

// Resolver folds a DID's anchored operations into resolution state.
type Resolver struct {
	namespace string
	store     OperationStore
	versions  VersionGetter
}

// New creates a new Resolver.
func New(namespace string, store OperationStore, versions VersionGetter) *Resolver {
	return &Resolver{namespace: namespace, store: store, versions: versions}
}

// Resolve folds uniqueSuffix's anchored operations and returns the
// resulting ResolutionModel.
func (r *Resolver) Resolve(uniqueSuffix string, opts ...ResolutionOption) (*doctransformer.ResolutionModel, error) {
	options := &ResolutionOptions{}
	for _, opt := range opts {
		opt(options)
	}

	ops, err := r.store.Get(uniqueSuffix)
	if err != nil {
		return nil, fmt.Errorf("get operations for %s: %s", uniqueSuffix, err.Error())
	}

	ops = append(append([]*operation.AnchoredOperation{}, ops...), options.AdditionalOperations...)

	ops, err = r.cutByVersion(ops, options)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ops, func(i, j int) bool { return operation.Less(ops[i], ops[j]) })

	state, published, unpublished := r.fold(uniqueSuffix, ops)

	if state == nil {
		return nil, ErrNotFound
	}

	if state.Doc == nil && state.NextRecoveryCommitment == "" {
		return &doctransformer.ResolutionModel{
			Deactivated:           true,
			PublishedOperations:   published,
			UnpublishedOperations: unpublished,
		}, ErrDeactivated
	}

	return &doctransformer.ResolutionModel{
		Doc:                   state.Doc,
		RecoveryCommitment:    state.NextRecoveryCommitment,
		UpdateCommitment:      state.NextUpdateCommitment,
		PublishedOperations:   published,
		UnpublishedOperations: unpublished,
	}, nil
}

// fold applies ops in order, skipping ones that fail to apply (spec
// §4.8 step 4: "invalid operations are skipped; never abort the fold").
func (r *Resolver) fold(
	uniqueSuffix string,
	ops []*operation.AnchoredOperation,
) (*operationapplier.State, []doctransformer.OperationSummary, []doctransformer.OperationSummary) {
	var (
		state       *operationapplier.State
		published   []doctransformer.OperationSummary
		unpublished []doctransformer.OperationSummary
	)

	for _, op := range ops {
		if state != nil && state.Doc == nil && state.NextRecoveryCommitment == "" {
			// already deactivated; further operations are ignored
			break
		}

		applier, err := r.versions.ApplierAt(op.TransactionTime)
		if err != nil {
			logger.Info("no protocol version for transaction time, skipping operation",
				logfields.WithSuffix(uniqueSuffix), logfields.WithTransactionTime(op.TransactionTime))

			continue
		}

		next, err := applier.Apply(op, state)
		if err != nil {
			logger.Info("skipping invalid operation",
				logfields.WithSuffix(uniqueSuffix), logfields.WithOperationType(string(op.Type)),
				log.WithError(err))

			continue
		}

		state = next

		summary := doctransformer.OperationSummary{
			Type:               string(op.Type),
			TransactionTime:    op.TransactionTime,
			TransactionNumber:  op.TransactionNumber,
			CanonicalReference: op.CanonicalReference,
		}

		if op.CanonicalReference == "" {
			unpublished = append(unpublished, summary)
		} else {
			published = append(published, summary)
		}
	}

	return state, published, unpublished
}

// cutByVersion applies WithVersionID/WithVersionTime filtering, if set.
func (r *Resolver) cutByVersion(
	ops []*operation.AnchoredOperation,
	options *ResolutionOptions,
) ([]*operation.AnchoredOperation, error) {
	if options.VersionID == "" && options.VersionTime == "" {
		return ops, nil
	}

	sort.SliceStable(ops, func(i, j int) bool { return operation.Less(ops[i], ops[j]) })

	if options.VersionID != "" {
		for i, op := range ops {
			if op.CanonicalReference == options.VersionID {
				return ops[:i+1], nil
			}
		}

		return nil, fmt.Errorf("'%s' is not a valid versionId", options.VersionID)
	}

	cutoff, err := parseVersionTime(options.VersionTime)
	if err != nil {
		return nil, err
	}

	cut := make([]*operation.AnchoredOperation, 0, len(ops))

	for _, op := range ops {
		if op.TransactionTime > cutoff {
			continue
		}

		cut = append(cut, op)
	}

	return cut, nil
}

func parseVersionTime(versionTime string) (uint64, error) {
	t, err := time.Parse(time.RFC3339, versionTime)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid versionTime: %s", versionTime, err.Error())
	}

	return uint64(t.Unix()), nil
}
