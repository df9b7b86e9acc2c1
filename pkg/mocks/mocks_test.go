/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
)

func TestAnchorChainWriteThenRead(t *testing.T) {
	c := NewAnchorChain(nil)

	require.NoError(t, c.Write("anchor-1", 0))
	require.NoError(t, c.Write("anchor-2", 0))

	result, err := c.Read(0, "")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	require.Equal(t, "anchor-1", result.Transactions[0].AnchorString)
	require.Equal(t, uint64(1), result.Transactions[0].TransactionNumber)

	result, err = c.Read(1, "")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	require.Equal(t, "anchor-2", result.Transactions[0].AnchorString)
}

func TestAnchorChainWriteErr(t *testing.T) {
	wantErr := errors.New("writer rejected")
	c := NewAnchorChain(wantErr)

	require.ErrorIs(t, c.Write("anchor-1", 0), wantErr)
}

func TestAnchorChainFirstValidAndLatestTime(t *testing.T) {
	c := NewAnchorChain(nil)
	require.NoError(t, c.Write("anchor-1", 0))

	result, err := c.Read(0, "")
	require.NoError(t, err)

	first, err := c.FirstValid(result.Transactions)
	require.NoError(t, err)
	require.Equal(t, result.Transactions[0], first)

	latest, err := c.LatestTime()
	require.NoError(t, err)
	require.Equal(t, uint64(1), latest.Time)
}

func TestCASWriteThenRead(t *testing.T) {
	c := NewCAS(nil)

	address, err := c.Write([]byte("hello"))
	require.NoError(t, err)

	content, err := c.Read(address)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content)
}

func TestCASReadUnknownAddress(t *testing.T) {
	c := NewCAS(nil)

	_, err := c.Read("unknown")
	require.ErrorIs(t, err, cas.ErrNotFound)
}

func TestCASReadErrOverride(t *testing.T) {
	wantErr := errors.New("store unreachable")
	c := NewCAS(wantErr)

	_, err := c.Read("unknown")
	require.ErrorIs(t, err, wantErr)
}
