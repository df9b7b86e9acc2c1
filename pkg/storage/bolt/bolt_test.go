/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "sidetree.db"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestOperationStore(t *testing.T) {
	s := openTestStore(t).OperationStore()

	require.NoError(t, s.Put([]*operation.AnchoredOperation{
		{UniqueSuffix: "abc", TransactionNumber: 2, OperationIndex: 0},
		{UniqueSuffix: "abc", TransactionNumber: 1, OperationIndex: 0},
	}))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, uint64(1), ops[0].TransactionNumber)

	require.NoError(t, s.DeleteAbove(1))

	ops, err = s.Get("abc")
	require.NoError(t, err)
	require.Len(t, ops, 1)
}

func TestTransactionStore(t *testing.T) {
	s := openTestStore(t).TransactionStore()

	require.NoError(t, s.Put(&txn.Transaction{TransactionNumber: 1, TransactionTime: 100}))
	require.NoError(t, s.Put(&txn.Transaction{TransactionNumber: 2, TransactionTime: 100}))
	require.NoError(t, s.Put(&txn.Transaction{TransactionNumber: 3, TransactionTime: 200}))

	last, err := s.Last()
	require.NoError(t, err)
	require.Equal(t, uint64(3), last.TransactionNumber)

	atBlock, err := s.AtBlock(100)
	require.NoError(t, err)
	require.Len(t, atBlock, 2)

	recent, err := s.RecentBefore(2, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, uint64(2), recent[0].TransactionNumber)

	require.NoError(t, s.DeleteAbove(1))

	last, err = s.Last()
	require.NoError(t, err)
	require.Equal(t, uint64(1), last.TransactionNumber)
}

func TestUnresolvableTransactionStore(t *testing.T) {
	s := openTestStore(t).UnresolvableTransactionStore()

	require.NoError(t, s.Put(&store.UnresolvableTransaction{
		Transaction:   &txn.Transaction{TransactionNumber: 1},
		NextRetryTime: 100,
	}))

	due, err := s.GetDueForRetry(150)
	require.NoError(t, err)
	require.Len(t, due, 1)
}

func TestServiceStateStore(t *testing.T) {
	s := openTestStore(t).ServiceStateStore()

	require.NoError(t, s.Put(&store.ServiceState{DatabaseVersion: 2}))

	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, 2, got.DatabaseVersion)
}
