/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package memstore implements the four store contracts (spec §6.4)
// entirely in memory, for tests and single-process development. None
// of its state survives a restart.
package memstore

import (
	"sort"
	"sync"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

// OperationStore is an in-memory store.OperationStore.
type OperationStore struct {
	mu  sync.RWMutex
	ops map[string][]*operation.AnchoredOperation
}

// NewOperationStore creates an empty OperationStore.
func NewOperationStore() *OperationStore {
	return &OperationStore{ops: make(map[string][]*operation.AnchoredOperation)}
}

// Put upserts ops, keyed by (uniqueSuffix, transactionNumber, operationIndex).
func (s *OperationStore) Put(ops []*operation.AnchoredOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		existing := s.ops[op.UniqueSuffix]

		replaced := false

		for i, e := range existing {
			if e.TransactionNumber == op.TransactionNumber && e.OperationIndex == op.OperationIndex {
				existing[i] = op
				replaced = true

				break
			}
		}

		if !replaced {
			existing = append(existing, op)
		}

		sort.Slice(existing, func(i, j int) bool { return operation.Less(existing[i], existing[j]) })

		s.ops[op.UniqueSuffix] = existing
	}

	return nil
}

// Get returns uniqueSuffix's anchored operations in canonical order.
func (s *OperationStore) Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*operation.AnchoredOperation, len(s.ops[uniqueSuffix]))
	copy(out, s.ops[uniqueSuffix])

	return out, nil
}

// DeleteAbove drops every operation anchored above transactionNumber.
func (s *OperationStore) DeleteAbove(transactionNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for suffix, ops := range s.ops {
		kept := ops[:0:0]

		for _, op := range ops {
			if op.TransactionNumber <= transactionNumber {
				kept = append(kept, op)
			}
		}

		if len(kept) == 0 {
			delete(s.ops, suffix)
		} else {
			s.ops[suffix] = kept
		}
	}

	return nil
}

// TransactionStore is an in-memory store.TransactionStore, ordered by
// TransactionNumber.
type TransactionStore struct {
	mu  sync.RWMutex
	all []*txn.Transaction
}

// NewTransactionStore creates an empty TransactionStore.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Put upserts t; insertion of an already-present transaction number is
// a no-op.
func (s *TransactionStore) Put(t *txn.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.all), func(i int) bool { return s.all[i].TransactionNumber >= t.TransactionNumber })
	if i < len(s.all) && s.all[i].TransactionNumber == t.TransactionNumber {
		return nil
	}

	s.all = append(s.all, nil)
	copy(s.all[i+1:], s.all[i:])
	s.all[i] = t

	return nil
}

// Last returns the highest-numbered transaction, or nil if the store is empty.
func (s *TransactionStore) Last() (*txn.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.all) == 0 {
		return nil, nil
	}

	return s.all[len(s.all)-1], nil
}

// RecentBefore returns up to limit transactions with TransactionNumber
// <= before, newest first.
func (s *TransactionStore) RecentBefore(before uint64, limit int) ([]*txn.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.all), func(i int) bool { return s.all[i].TransactionNumber > before })

	var out []*txn.Transaction

	for j := i - 1; j >= 0 && len(out) < limit; j-- {
		out = append(out, s.all[j])
	}

	return out, nil
}

// AtBlock returns the transactions already stored at transactionTime.
func (s *TransactionStore) AtBlock(transactionTime uint64) ([]*txn.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*txn.Transaction

	for _, t := range s.all {
		if t.TransactionTime == transactionTime {
			out = append(out, t)
		}
	}

	return out, nil
}

// DeleteAbove drops every transaction numbered above transactionNumber.
func (s *TransactionStore) DeleteAbove(transactionNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.all), func(i int) bool { return s.all[i].TransactionNumber > transactionNumber })
	s.all = s.all[:i]

	return nil
}

// UnresolvableTransactionStore is an in-memory
// store.UnresolvableTransactionStore, keyed by transaction number.
type UnresolvableTransactionStore struct {
	mu  sync.RWMutex
	all map[uint64]*store.UnresolvableTransaction
}

// NewUnresolvableTransactionStore creates an empty UnresolvableTransactionStore.
func NewUnresolvableTransactionStore() *UnresolvableTransactionStore {
	return &UnresolvableTransactionStore{all: make(map[uint64]*store.UnresolvableTransaction)}
}

// Put upserts u, keyed by its transaction's TransactionNumber.
func (s *UnresolvableTransactionStore) Put(u *store.UnresolvableTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all[u.Transaction.TransactionNumber] = u

	return nil
}

// GetDueForRetry returns every entry whose NextRetryTime has elapsed.
func (s *UnresolvableTransactionStore) GetDueForRetry(now int64) ([]*store.UnresolvableTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.UnresolvableTransaction

	for _, u := range s.all {
		if u.NextRetryTime <= now {
			out = append(out, u)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Transaction.TransactionNumber < out[j].Transaction.TransactionNumber
	})

	return out, nil
}

// DeleteAbove drops every entry numbered above transactionNumber.
func (s *UnresolvableTransactionStore) DeleteAbove(transactionNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n := range s.all {
		if n > transactionNumber {
			delete(s.all, n)
		}
	}

	return nil
}

// ServiceStateStore is an in-memory store.ServiceStateStore holding a
// single document.
type ServiceStateStore struct {
	mu    sync.RWMutex
	state *store.ServiceState
}

// NewServiceStateStore creates an empty ServiceStateStore.
func NewServiceStateStore() *ServiceStateStore {
	return &ServiceStateStore{}
}

// Get returns the stored ServiceState, or a zero-value one if none has
// been put yet.
func (s *ServiceStateStore) Get() (*store.ServiceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return &store.ServiceState{}, nil
	}

	copied := *s.state

	return &copied, nil
}

// Put replaces the stored ServiceState.
func (s *ServiceStateStore) Put(state *store.ServiceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	s.state = &copied

	return nil
}
