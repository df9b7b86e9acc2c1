/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package unpublished implements pkg/dochandler's UnpublishedOperationStore:
// operations admitted by the BatchWriter but not yet anchored, keyed by
// suffix, so RequestHandler can fold an operation into resolution state
// before the next batch is cut (spec §3 supplemented feature).
package unpublished

import (
	"sync"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

// Store is an in-memory UnpublishedOperationStore. None of its state
// survives a restart. A staged operation stays here until a caller
// passes it to Delete; neither the Observer nor the BatchWriter calls
// Delete, so an operation remains staged after it is anchored.
// Anchored operations that matter past restart live in pkg/storage's
// OperationStore instead.
type Store struct {
	mu  sync.RWMutex
	ops map[string][]*operation.AnchoredOperation
}

// New creates an empty Store.
func New() *Store {
	return &Store{ops: make(map[string][]*operation.AnchoredOperation)}
}

// Put stages op under its unique suffix, replacing any previously
// staged operation with the same type for that suffix (a suffix can
// have at most one outstanding unpublished operation of a given type
// at a time, mirroring the BatchWriter's own per-suffix admission
// rule).
func (s *Store) Put(op *operation.AnchoredOperation) error {
	if op == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.ops[op.UniqueSuffix]

	for i, e := range existing {
		if e.Type == op.Type {
			existing[i] = op

			s.ops[op.UniqueSuffix] = existing

			return nil
		}
	}

	s.ops[op.UniqueSuffix] = append(existing, op)

	return nil
}

// Get returns every operation currently staged for uniqueSuffix, in
// the order they were staged.
func (s *Store) Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := s.ops[uniqueSuffix]
	if len(existing) == 0 {
		return nil, nil
	}

	out := make([]*operation.AnchoredOperation, len(existing))
	copy(out, existing)

	return out, nil
}

// Delete removes op from the unpublished store, for a caller that
// knows op now lives in the OperationStore. A nil op, or one no
// longer present (already deleted, or
// replaced by a later Put for the same suffix/type), is a no-op.
func (s *Store) Delete(op *operation.AnchoredOperation) error {
	if op == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.ops[op.UniqueSuffix]

	for i, e := range existing {
		if e.Type == op.Type && e.TransactionTime == op.TransactionTime && e.TransactionNumber == op.TransactionNumber {
			existing = append(existing[:i], existing[i+1:]...)

			break
		}
	}

	if len(existing) == 0 {
		delete(s.ops, op.UniqueSuffix)
	} else {
		s.ops[op.UniqueSuffix] = existing
	}

	return nil
}
