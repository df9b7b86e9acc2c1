/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bolt implements the four store contracts (spec §6.4) on top
// of a single BoltDB file, so a node's ingestion state survives a
// restart.
package bolt

import (
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

var (
	bucketOperations    = []byte("operations")
	bucketTransactions  = []byte("transactions")
	bucketUnresolvable  = []byte("unresolvable")
	bucketServiceState  = []byte("servicestate")
)

var serviceStateKey = []byte("state")

// Store bundles all four store contracts over one BoltDB file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the BoltDB file at path and ensures
// every bucket this package uses exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketOperations, bucketTransactions, bucketUnresolvable, bucketServiceState} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying BoltDB file.
func (s *Store) Close() error {
	return s.db.Close()
}

func transactionNumberKey(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)

	return key
}

// OperationStore returns the store.OperationStore view of s.
func (s *Store) OperationStore() *OperationStore { return &OperationStore{db: s.db} }

// TransactionStore returns the store.TransactionStore view of s.
func (s *Store) TransactionStore() *TransactionStore { return &TransactionStore{db: s.db} }

// UnresolvableTransactionStore returns the
// store.UnresolvableTransactionStore view of s.
func (s *Store) UnresolvableTransactionStore() *UnresolvableTransactionStore {
	return &UnresolvableTransactionStore{db: s.db}
}

// ServiceStateStore returns the store.ServiceStateStore view of s.
func (s *Store) ServiceStateStore() *ServiceStateStore { return &ServiceStateStore{db: s.db} }

// OperationStore is the bbolt-backed store.OperationStore: each DID
// unique suffix is one key holding its JSON-encoded, canonically
// ordered operation slice.
type OperationStore struct {
	db *bolt.DB
}

// Put upserts ops into their suffix's slice.
func (s *OperationStore) Put(ops []*operation.AnchoredOperation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)

		bySuffix := make(map[string][]*operation.AnchoredOperation)
		for _, op := range ops {
			bySuffix[op.UniqueSuffix] = append(bySuffix[op.UniqueSuffix], op)
		}

		for suffix, toAdd := range bySuffix {
			existing, err := readOperations(b, suffix)
			if err != nil {
				return err
			}

			for _, op := range toAdd {
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
			}

			sortOperations(existing)

			if err := writeOperations(b, suffix, existing); err != nil {
				return err
			}
		}

		return nil
	})
}

// Get returns uniqueSuffix's anchored operations in canonical order.
func (s *OperationStore) Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error) {
	var out []*operation.AnchoredOperation

	err := s.db.View(func(tx *bolt.Tx) error {
		ops, err := readOperations(tx.Bucket(bucketOperations), uniqueSuffix)
		if err != nil {
			return err
		}

		out = ops

		return nil
	})

	return out, err
}

// DeleteAbove drops every operation anchored above transactionNumber.
func (s *OperationStore) DeleteAbove(transactionNumber uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)

		return b.ForEach(func(k, v []byte) error {
			var ops []*operation.AnchoredOperation
			if err := json.Unmarshal(v, &ops); err != nil {
				return err
			}

			kept := ops[:0:0]

			for _, op := range ops {
				if op.TransactionNumber <= transactionNumber {
					kept = append(kept, op)
				}
			}

			if len(kept) == 0 {
				return b.Delete(k)
			}

			return writeOperations(b, string(k), kept)
		})
	})
}

func readOperations(b *bolt.Bucket, suffix string) ([]*operation.AnchoredOperation, error) {
	data := b.Get([]byte(suffix))
	if data == nil {
		return nil, nil
	}

	var ops []*operation.AnchoredOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, err
	}

	return ops, nil
}

func writeOperations(b *bolt.Bucket, suffix string, ops []*operation.AnchoredOperation) error {
	data, err := json.Marshal(ops)
	if err != nil {
		return err
	}

	return b.Put([]byte(suffix), data)
}

func sortOperations(ops []*operation.AnchoredOperation) {
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && operation.Less(ops[j], ops[j-1]); j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
		}
	}
}

// TransactionStore is the bbolt-backed store.TransactionStore, keyed
// by big-endian TransactionNumber for ordered range scans.
type TransactionStore struct {
	db *bolt.DB
}

// Put upserts t; insertion of an already-present transaction number is
// a no-op.
func (s *TransactionStore) Put(t *txn.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		key := transactionNumberKey(t.TransactionNumber)

		if b.Get(key) != nil {
			return nil
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		return b.Put(key, data)
	})
}

// Last returns the highest-numbered transaction, or nil if the store
// is empty.
func (s *TransactionStore) Last() (*txn.Transaction, error) {
	var out *txn.Transaction

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTransactions).Cursor()

		k, v := c.Last()
		if k == nil {
			return nil
		}

		var t txn.Transaction
		if err := json.Unmarshal(v, &t); err != nil {
			return err
		}

		out = &t

		return nil
	})

	return out, err
}

// RecentBefore returns up to limit transactions with TransactionNumber
// <= before, newest first.
func (s *TransactionStore) RecentBefore(before uint64, limit int) ([]*txn.Transaction, error) {
	var out []*txn.Transaction

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTransactions).Cursor()

		k, v := c.Seek(transactionNumberKey(before))
		if k == nil || binary.BigEndian.Uint64(k) > before {
			k, v = c.Prev()
		}

		for k != nil && len(out) < limit {
			var t txn.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			out = append(out, &t)
			k, v = c.Prev()
		}

		return nil
	})

	return out, err
}

// AtBlock returns the transactions already stored at transactionTime.
func (s *TransactionStore) AtBlock(transactionTime uint64) ([]*txn.Transaction, error) {
	var out []*txn.Transaction

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTransactions).ForEach(func(_, v []byte) error {
			var t txn.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			if t.TransactionTime == transactionTime {
				out = append(out, &t)
			}

			return nil
		})
	})

	return out, err
}

// DeleteAbove drops every transaction numbered above transactionNumber.
func (s *TransactionStore) DeleteAbove(transactionNumber uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		c := b.Cursor()

		var toDelete [][]byte

		for k, _ := c.Seek(transactionNumberKey(transactionNumber + 1)); k != nil; k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}

		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// UnresolvableTransactionStore is the bbolt-backed
// store.UnresolvableTransactionStore, keyed by big-endian transaction
// number.
type UnresolvableTransactionStore struct {
	db *bolt.DB
}

// Put upserts u, keyed by its transaction's TransactionNumber.
func (s *UnresolvableTransactionStore) Put(u *store.UnresolvableTransaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}

		return tx.Bucket(bucketUnresolvable).Put(transactionNumberKey(u.Transaction.TransactionNumber), data)
	})
}

// GetDueForRetry returns every entry whose NextRetryTime has elapsed.
func (s *UnresolvableTransactionStore) GetDueForRetry(now int64) ([]*store.UnresolvableTransaction, error) {
	var out []*store.UnresolvableTransaction

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUnresolvable).ForEach(func(_, v []byte) error {
			var u store.UnresolvableTransaction
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}

			if u.NextRetryTime <= now {
				out = append(out, &u)
			}

			return nil
		})
	})

	return out, err
}

// DeleteAbove drops every entry numbered above transactionNumber.
func (s *UnresolvableTransactionStore) DeleteAbove(transactionNumber uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUnresolvable)
		c := b.Cursor()

		var toDelete [][]byte

		for k, _ := c.Seek(transactionNumberKey(transactionNumber + 1)); k != nil; k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}

		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// ServiceStateStore is the bbolt-backed store.ServiceStateStore
// holding a single document.
type ServiceStateStore struct {
	db *bolt.DB
}

// Get returns the stored ServiceState, or a zero-value one if none has
// been put yet.
func (s *ServiceStateStore) Get() (*store.ServiceState, error) {
	var out store.ServiceState

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketServiceState).Get(serviceStateKey)
		if data == nil {
			return nil
		}

		return json.Unmarshal(data, &out)
	})

	return &out, err
}

// Put replaces the stored ServiceState.
func (s *ServiceStateStore) Put(state *store.ServiceState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}

		return tx.Bucket(bucketServiceState).Put(serviceStateKey, data)
	})
}
