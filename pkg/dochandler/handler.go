/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dochandler implements the RequestHandler (spec §4.9): the
// node's two external operations, submitting an operation request to
// the BatchWriter and resolving a DID to its external resolution
// envelope.
package dochandler

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/batch"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doctransformer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
	"github.com/trustbloc/sidetree-svc-go/pkg/processor"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	"github.com/trustbloc/logutil-go/pkg/log"
)

var logger = log.New("dochandler")

// Status is the outcome of a request, mapped to an HTTP status code by
// the transport layer (spec §4.9).
type Status int

const (
	// StatusSucceeded maps to HTTP 200.
	StatusSucceeded Status = iota
	// StatusAccepted maps to HTTP 200 with no resolution body.
	StatusAccepted
	// StatusBadRequest maps to HTTP 400.
	StatusBadRequest
	// StatusNotFound maps to HTTP 404.
	StatusNotFound
	// StatusDeactivated maps to HTTP 410.
	StatusDeactivated
	// StatusServerError maps to HTTP 500.
	StatusServerError
)

// ErrOperationTooLarge is returned by ProcessOperation when the
// request exceeds the active protocol version's MaxOperationSize.
var ErrOperationTooLarge = errors.New("operation request exceeds maximum operation size")

// ledgerClock supplies the ledger time used to select the protocol
// version an incoming operation request is parsed and admitted under.
type ledgerClock interface {
	Time() uint64
}

// operationResolver folds a DID's anchored (plus, optionally,
// unpublished) operations into resolution state.
type operationResolver interface {
	Resolve(uniqueSuffix string, opts ...processor.ResolutionOption) (*doctransformer.ResolutionModel, error)
}

// batchWriter admits a parsed operation into the BatchWriter queue.
type batchWriter interface {
	Submit(op *operation.Operation) error
}

// ErrBatchWriterDisabled is returned by ProcessOperation when the node
// was constructed without a running BatchWriter (BatchingInterval<=0,
// e.g. an observe-only deployment) and so has nowhere to admit an
// operation request into.
var ErrBatchWriterDisabled = errors.New("batch writer is disabled, this node does not accept operation requests")

// DisabledWriter is a batchWriter that rejects every Submit with
// ErrBatchWriterDisabled. Callers construct a DocumentHandler with one
// in place of a real BatchWriter when batching is turned off, so
// ProcessOperation fails cleanly instead of requiring every writer
// implementation to guard against a nil receiver.
type DisabledWriter struct{}

// Submit always returns ErrBatchWriterDisabled.
func (DisabledWriter) Submit(*operation.Operation) error {
	return ErrBatchWriterDisabled
}

// UnpublishedOperationStore persists operations admitted by the
// BatchWriter but not yet anchored, so ResolveDocument can fold them
// into the state it returns ahead of the next anchoring round.
type UnpublishedOperationStore interface {
	Put(op *operation.AnchoredOperation) error
	Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error)
}

type noopUnpublishedOperationStore struct{}

func (noopUnpublishedOperationStore) Put(*operation.AnchoredOperation) error { return nil }

func (noopUnpublishedOperationStore) Get(string) ([]*operation.AnchoredOperation, error) {
	return nil, nil
}

// DocumentHandler implements the RequestHandler (spec §4.9).
type DocumentHandler struct {
	namespace   string
	versions    *protocolversion.Manager
	clock       ledgerClock
	resolver    operationResolver
	writer      batchWriter
	unpublished UnpublishedOperationStore
}

// Option configures a DocumentHandler.
type Option func(*DocumentHandler)

// WithUnpublishedOperationStore overrides the unpublished operation
// store consulted by ResolveDocument; the default never surfaces an
// unpublished operation before it is anchored.
func WithUnpublishedOperationStore(s UnpublishedOperationStore) Option {
	return func(h *DocumentHandler) { h.unpublished = s }
}

// New creates a new DocumentHandler.
func New(
	namespace string,
	versions *protocolversion.Manager,
	clock ledgerClock,
	resolver operationResolver,
	writer batchWriter,
	opts ...Option,
) *DocumentHandler {
	h := &DocumentHandler{
		namespace:   namespace,
		versions:    versions,
		clock:       clock,
		resolver:    resolver,
		writer:      writer,
		unpublished: noopUnpublishedOperationStore{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

type envelope struct {
	Type operation.Type `json:"type"`
}

// ProcessOperation implements handleOperationRequest(bytes): selects
// the protocol version active at the current ledger time, enforces
// the operation-size limit, parses and structurally validates the
// request, and submits it to the BatchWriter. Create operations also
// get an immediate, unpublished resolution envelope back.
func (h *DocumentHandler) ProcessOperation(request []byte) (map[string]interface{}, Status, error) {
	v, err := h.versions.VersionAt(h.clock.Time())
	if err != nil {
		return nil, StatusServerError, err
	}

	p := v.Protocol()

	if uint(len(request)) > p.MaxOperationSize {
		return nil, StatusBadRequest, ErrOperationTooLarge
	}

	var env envelope

	if err := json.Unmarshal(request, &env); err != nil {
		return nil, StatusBadRequest, errors.Wrap(err, "operation request is not valid JSON")
	}

	op, err := v.OperationParser().Parse(env.Type, request, false)
	if err != nil {
		return nil, StatusBadRequest, err
	}

	if err := h.writer.Submit(op); err != nil {
		status := StatusServerError
		if errors.Is(err, batch.ErrMultipleOperationsPerDID) {
			status = StatusBadRequest
		}

		return nil, status, err
	}

	logger.Info("admitted operation", logfields.WithOperationType(string(op.Type)), logfields.WithSuffix(op.UniqueSuffix))

	if op.Type != operation.TypeCreate {
		return nil, StatusAccepted, nil
	}

	doc, err := v.DocumentComposer().ApplyPatches(nil, op.Delta.Patches)
	if err != nil {
		return nil, StatusServerError, err
	}

	rm := &doctransformer.ResolutionModel{
		Doc:                doc,
		RecoveryCommitment: op.SuffixData.RecoveryCommitment,
		UpdateCommitment:   op.Delta.UpdateCommitment,
	}

	if err := h.stageUnpublished(op); err != nil {
		logger.Warn("stage unpublished create operation failed", log.WithError(err))
	}

	result, err := v.DocumentTransformer().TransformDocument(rm, &doctransformer.TransformationInfo{
		ID:        h.namespace + ":" + op.UniqueSuffix,
		Published: false,
	})
	if err != nil {
		return nil, StatusServerError, err
	}

	return result, StatusSucceeded, nil
}

func (h *DocumentHandler) stageUnpublished(op *operation.Operation) error {
	return h.unpublished.Put(&operation.AnchoredOperation{
		Type:             op.Type,
		UniqueSuffix:     op.UniqueSuffix,
		OperationRequest: op.OperationRequest,
		SignedData:       op.SignedData,
		RevealValue:      op.RevealValue,
		Delta:            op.Delta,
		SuffixData:       op.SuffixData,
		AnchorOrigin:     op.AnchorOrigin,
	})
}

// ResolveDocument implements handleResolveRequest(didOrLongForm): folds
// the DID's operations (anchored plus any staged-but-unpublished ones)
// into its external resolution envelope. A long-form DID unknown to
// the OperationStore is resolved directly from its embedded create
// payload.
func (h *DocumentHandler) ResolveDocument(shortOrLongFormDID string) (map[string]interface{}, Status, error) {
	v := h.versions.Current()

	did, createRequest, err := v.OperationParser().ParseDID(h.namespace, shortOrLongFormDID)
	if err != nil {
		return nil, StatusBadRequest, err
	}

	suffix := getSuffix(h.namespace, did)

	pending, err := h.unpublished.Get(suffix)
	if err != nil {
		return nil, StatusServerError, err
	}

	rm, err := h.resolver.Resolve(suffix, processor.WithAdditionalOperations(pending))

	switch {
	case err == nil:
		result, terr := v.DocumentTransformer().TransformDocument(rm, &doctransformer.TransformationInfo{
			ID:        did,
			Published: len(rm.PublishedOperations) > 0,
		})
		if terr != nil {
			return nil, StatusServerError, terr
		}

		return result, StatusSucceeded, nil

	case errors.Is(err, processor.ErrDeactivated):
		result, terr := v.DocumentTransformer().TransformDocument(rm, &doctransformer.TransformationInfo{
			ID:        did,
			Published: true,
		})
		if terr != nil {
			return nil, StatusServerError, terr
		}

		return result, StatusDeactivated, processor.ErrDeactivated

	case errors.Is(err, processor.ErrNotFound) && createRequest != nil:
		return h.resolveFromInitialState(v, did, suffix, createRequest)

	case errors.Is(err, processor.ErrNotFound):
		return nil, StatusNotFound, processor.ErrNotFound

	default:
		return nil, StatusServerError, err
	}
}

func (h *DocumentHandler) resolveFromInitialState(
	v protocolversion.Version,
	did, suffix string,
	createRequest []byte,
) (map[string]interface{}, Status, error) {
	op, err := v.OperationParser().Parse(operation.TypeCreate, createRequest, false)
	if err != nil {
		return nil, StatusBadRequest, err
	}

	if op.UniqueSuffix != suffix {
		return nil, StatusBadRequest, errors.New("initial state does not match the DID's unique suffix")
	}

	doc, err := v.DocumentComposer().ApplyPatches(nil, op.Delta.Patches)
	if err != nil {
		return nil, StatusServerError, err
	}

	rm := &doctransformer.ResolutionModel{
		Doc:                doc,
		RecoveryCommitment: op.SuffixData.RecoveryCommitment,
		UpdateCommitment:   op.Delta.UpdateCommitment,
	}

	result, err := v.DocumentTransformer().TransformDocument(rm, &doctransformer.TransformationInfo{
		ID:        did,
		Published: false,
	})
	if err != nil {
		return nil, StatusServerError, err
	}

	return result, StatusSucceeded, nil
}

func getSuffix(namespace, did string) string {
	return strings.TrimPrefix(did, namespace+":")
}
