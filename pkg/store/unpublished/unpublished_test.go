/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package unpublished

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
)

func TestPutThenGet(t *testing.T) {
	s := New()

	create := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeCreate, TransactionNumber: 1}

	require.NoError(t, s.Put(create))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Equal(t, []*operation.AnchoredOperation{create}, ops)
}

func TestGetUnknownSuffixReturnsEmpty(t *testing.T) {
	s := New()

	ops, err := s.Get("missing")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestPutReplacesSameTypeForSuffix(t *testing.T) {
	s := New()

	first := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeUpdate, TransactionNumber: 1}
	second := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeUpdate, TransactionNumber: 2}

	require.NoError(t, s.Put(first))
	require.NoError(t, s.Put(second))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Equal(t, []*operation.AnchoredOperation{second}, ops)
}

func TestPutKeepsDistinctTypesForSuffix(t *testing.T) {
	s := New()

	create := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeCreate}
	update := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeUpdate}

	require.NoError(t, s.Put(create))
	require.NoError(t, s.Put(update))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Len(t, ops, 2)
}

func TestDeleteRemovesMatchingOperation(t *testing.T) {
	s := New()

	op := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeCreate, TransactionNumber: 1, TransactionTime: 5}

	require.NoError(t, s.Put(op))
	require.NoError(t, s.Delete(op))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestDeleteNilIsNoop(t *testing.T) {
	s := New()

	require.NoError(t, s.Delete(nil))
	require.NoError(t, s.Put(nil))
}

func TestDeleteNonMatchingLeavesOperation(t *testing.T) {
	s := New()

	op := &operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeCreate, TransactionNumber: 1}
	require.NoError(t, s.Put(op))

	require.NoError(t, s.Delete(&operation.AnchoredOperation{UniqueSuffix: "abc", Type: operation.TypeCreate, TransactionNumber: 2}))

	ops, err := s.Get("abc")
	require.NoError(t, err)
	require.Len(t, ops, 1)
}
