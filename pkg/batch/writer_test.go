/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/compression"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	v1_0 "github.com/trustbloc/sidetree-svc-go/pkg/protocolversion/versions/v1_0"
)

type fixedClock struct{ t uint64 }

func (f fixedClock) Time() uint64 { return f.t }

type mockCAS struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMockCAS() *mockCAS { return &mockCAS{store: make(map[string][]byte)} }

func (m *mockCAS) Write(content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := fmt.Sprintf("addr-%d", len(m.store))
	m.store[addr] = content

	return addr, nil
}

func (m *mockCAS) Read(address string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.store[address]
	if !ok {
		return nil, errMockNotFound
	}

	return content, nil
}

var errMockNotFound = mockError("not found")

type mockError string

func (e mockError) Error() string { return string(e) }

type mockChain struct {
	mu           sync.Mutex
	writes       []string
	fees         []uint64
	lock         *anchor.ValueTimeLock
	writeErr     error
}

func (m *mockChain) Write(anchorString string, minFee uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}

	m.writes = append(m.writes, anchorString)
	m.fees = append(m.fees, minFee)

	return nil
}

func (m *mockChain) Read(uint64, string) (*anchor.ReadResult, error)           { return nil, nil }
func (m *mockChain) FirstValid([]*txn.Transaction) (*txn.Transaction, error)   { return nil, nil }
func (m *mockChain) LatestTime() (*anchor.Time, error)                         { return &anchor.Time{}, nil }
func (m *mockChain) WriterValueTimeLock() (*anchor.ValueTimeLock, error)       { return m.lock, nil }

func testManager(t *testing.T) *protocolversion.Manager {
	t.Helper()

	p := protocol.Protocol{
		GenesisTime:                  0,
		VersionID:                    "1.0",
		MultihashAlgorithms:          []uint{18},
		MaxOperationCount:            10,
		MaxCoreIndexFileSize:         10000,
		MaxProvisionalIndexFileSize:  10000,
		MaxProofFileSize:             10000,
		MaxChunkFileSize:             10000,
		MaxCasURILength:              200,
		MaxWriterLockIDBytes:         20,
		MaxMemoryDecompressionFactor: 3,
		CompressionAlgorithm:         compression.Gzip,
	}

	reg := compression.New(compression.WithDefaultAlgorithms())
	cas := newMockCAS()
	dl := download.New(cas, 4)

	v := v1_0.New(p, cas, dl, reg)

	m, err := protocolversion.New([]protocolversion.Version{v})
	require.NoError(t, err)

	return m
}

func TestWriterSubmitAndCut(t *testing.T) {
	m := testManager(t)
	chain := &mockChain{}

	w := New(m, fixedClock{t: 0}, chain)

	create := &operation.Operation{
		Type: operation.TypeCreate,
		SuffixData: &operation.SuffixDataModel{
			DeltaHash:          "deltaHash",
			RecoveryCommitment: "recoveryCommitment",
		},
		Delta: &operation.DeltaModel{UpdateCommitment: "updateCommitment"},
	}

	require.NoError(t, w.Submit(create))
	require.Equal(t, 1, w.QueueLength())

	w.cut()

	require.Equal(t, 0, w.QueueLength())
	require.Len(t, chain.writes, 1)
}

func TestWriterRejectsDuplicateSuffix(t *testing.T) {
	m := testManager(t)
	chain := &mockChain{}

	w := New(m, fixedClock{t: 0}, chain)

	create := &operation.Operation{
		Type:         operation.TypeUpdate,
		UniqueSuffix: "suffix1",
		RevealValue:  "reveal1",
		SignedData:   "jws1",
		Delta:        &operation.DeltaModel{UpdateCommitment: "updateCommitment"},
	}

	require.NoError(t, w.Submit(create))
	require.ErrorIs(t, w.Submit(create), ErrMultipleOperationsPerDID)
}

func TestWriterCutNoopWhenQueueEmpty(t *testing.T) {
	m := testManager(t)
	chain := &mockChain{}

	w := New(m, fixedClock{t: 0}, chain)
	w.cut()

	require.Empty(t, chain.writes)
}

func TestWriterCutDropsExpiredOperationWithoutAnchoring(t *testing.T) {
	m := testManager(t)
	chain := &mockChain{}

	w := New(m, fixedClock{t: 100}, chain)

	expired := &operation.Operation{
		Type:         operation.TypeUpdate,
		UniqueSuffix: "expired",
		RevealValue:  "reveal1",
		SignedData:   "jws1",
		Delta:        &operation.DeltaModel{UpdateCommitment: "updateCommitment"},
		AnchorUntil:  99,
	}

	require.NoError(t, w.Submit(expired))
	require.Equal(t, 1, w.QueueLength())

	w.cut()

	require.Equal(t, 0, w.QueueLength())
	require.Empty(t, chain.writes)

	// the suffix is freed, so a fresh operation for it can be admitted
	require.NoError(t, w.Submit(expired))
}

func TestWriterCutKeepsUnexpiredAndUnboundedOperations(t *testing.T) {
	m := testManager(t)
	chain := &mockChain{}

	w := New(m, fixedClock{t: 100}, chain)

	unexpired := &operation.Operation{
		Type:         operation.TypeUpdate,
		UniqueSuffix: "unexpired",
		RevealValue:  "reveal1",
		SignedData:   "jws1",
		Delta:        &operation.DeltaModel{UpdateCommitment: "updateCommitment"},
		AnchorUntil:  101,
	}

	unbounded := &operation.Operation{
		Type:         operation.TypeUpdate,
		UniqueSuffix: "unbounded",
		RevealValue:  "reveal2",
		SignedData:   "jws2",
		Delta:        &operation.DeltaModel{UpdateCommitment: "updateCommitment"},
	}

	require.NoError(t, w.Submit(unexpired))
	require.NoError(t, w.Submit(unbounded))

	w.cut()

	require.Equal(t, 0, w.QueueLength())
	require.Len(t, chain.writes, 1)
}
