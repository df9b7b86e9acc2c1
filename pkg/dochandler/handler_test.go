/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dochandler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/batch"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/compression"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/processor"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	v1_0 "github.com/trustbloc/sidetree-svc-go/pkg/protocolversion/versions/v1_0"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

const multihashCode = 18

type fixedClock struct{ t uint64 }

func (f fixedClock) Time() uint64 { return f.t }

type nopCAS struct{}

func (nopCAS) Read(string) ([]byte, error)  { return nil, nil }
func (nopCAS) Write([]byte) (string, error) { return "", nil }

func testManager(t *testing.T) *protocolversion.Manager {
	t.Helper()

	p := protocol.Protocol{
		GenesisTime:            0,
		VersionID:              "1.0",
		MultihashAlgorithms:    []uint{multihashCode},
		Patches:                []string{"replace"},
		MaxOperationCount:      10,
		MaxOperationSize:       4000,
		MaxOperationHashLength: 100,
		MaxDeltaSize:           2000,
	}

	reg := compression.New(compression.WithDefaultAlgorithms())
	dl := download.New(nopCAS{}, 4)

	v := v1_0.New(p, nopCAS{}, dl, reg)

	m, err := protocolversion.New([]protocolversion.Version{v})
	require.NoError(t, err)

	return m
}

func newCreateRequestBytes(t *testing.T) []byte {
	t.Helper()

	delta := &operation.DeltaModel{
		Patches: []patch.Patch{patch.NewReplacePatch(map[string]interface{}{})},
	}

	updateCommitment, err := hashing.CalculateHash([]byte("update-key"), multihashCode)
	require.NoError(t, err)
	delta.UpdateCommitment = updateCommitment

	deltaHash, err := hashing.CalculateModelMultihash(delta, multihashCode)
	require.NoError(t, err)

	recoveryCommitment, err := hashing.CalculateHash([]byte("recovery-key"), multihashCode)
	require.NoError(t, err)

	req := model.CreateRequest{
		Operation: operation.TypeCreate,
		Delta:     delta,
		SuffixData: &operation.SuffixDataModel{
			DeltaHash:          deltaHash,
			RecoveryCommitment: recoveryCommitment,
		},
	}

	raw, err := canonicalizer.MarshalCanonical(req)
	require.NoError(t, err)

	return raw
}

type memUnpublishedStore struct {
	mu  sync.Mutex
	ops map[string][]*operation.AnchoredOperation
}

func newMemUnpublishedStore() *memUnpublishedStore {
	return &memUnpublishedStore{ops: make(map[string][]*operation.AnchoredOperation)}
}

func (s *memUnpublishedStore) Put(op *operation.AnchoredOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops[op.UniqueSuffix] = append(s.ops[op.UniqueSuffix], op)

	return nil
}

func (s *memUnpublishedStore) Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ops[uniqueSuffix], nil
}

type memOperationStore struct {
	mu  sync.Mutex
	ops map[string][]*operation.AnchoredOperation
}

func newMemOperationStore() *memOperationStore {
	return &memOperationStore{ops: make(map[string][]*operation.AnchoredOperation)}
}

func (s *memOperationStore) Get(uniqueSuffix string) ([]*operation.AnchoredOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ops[uniqueSuffix], nil
}

func (s *memOperationStore) put(uniqueSuffix string, op *operation.AnchoredOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops[uniqueSuffix] = append(s.ops[uniqueSuffix], op)
}

func TestProcessOperationAcceptsCreateAndReturnsUnpublishedDocument(t *testing.T) {
	m := testManager(t)
	w := batch.New(m, fixedClock{}, noopAnchorChain{})
	unpublished := newMemUnpublishedStore()

	opStore := newMemOperationStore()
	resolver := processor.New("did:sidetree", opStore, m)

	h := New("did:sidetree", m, fixedClock{}, resolver, w, WithUnpublishedOperationStore(unpublished))

	result, status, err := h.ProcessOperation(newCreateRequestBytes(t))
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status)
	require.Equal(t, 1, w.QueueLength())

	doc, ok := result["didDocument"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, doc["id"], "did:sidetree:")

	meta := result["didDocumentMetadata"].(map[string]interface{})["method"].(map[string]interface{})
	require.Equal(t, false, meta["published"])
}

func TestProcessOperationReturnsErrorWhenWriterDisabled(t *testing.T) {
	m := testManager(t)
	h := New("did:sidetree", m, fixedClock{}, processor.New("did:sidetree", newMemOperationStore(), m), DisabledWriter{})

	_, status, err := h.ProcessOperation(newCreateRequestBytes(t))
	require.ErrorIs(t, err, ErrBatchWriterDisabled)
	require.Equal(t, StatusServerError, status)
}

func TestProcessOperationRejectsOversizedRequest(t *testing.T) {
	m := testManager(t)
	w := batch.New(m, fixedClock{}, noopAnchorChain{})
	h := New("did:sidetree", m, fixedClock{}, processor.New("did:sidetree", newMemOperationStore(), m), w)

	oversized := make([]byte, 5000)

	_, status, err := h.ProcessOperation(oversized)
	require.ErrorIs(t, err, ErrOperationTooLarge)
	require.Equal(t, StatusBadRequest, status)
}

func TestResolveDocumentAnchoredOperation(t *testing.T) {
	m := testManager(t)
	opStore := newMemOperationStore()
	resolver := processor.New("did:sidetree", opStore, m)
	w := batch.New(m, fixedClock{}, noopAnchorChain{})

	h := New("did:sidetree", m, fixedClock{}, resolver, w)

	createReq := newCreateRequestBytes(t)

	v := m.Current()
	op, err := v.OperationParser().Parse(operation.TypeCreate, createReq, false)
	require.NoError(t, err)

	opStore.put(op.UniqueSuffix, &operation.AnchoredOperation{
		Type:               operation.TypeCreate,
		UniqueSuffix:       op.UniqueSuffix,
		Delta:              op.Delta,
		SuffixData:         op.SuffixData,
		TransactionTime:    1,
		TransactionNumber:  1,
		CanonicalReference: "tx-1",
	})

	result, status, err := h.ResolveDocument("did:sidetree:" + op.UniqueSuffix)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status)

	meta := result["didDocumentMetadata"].(map[string]interface{})["method"].(map[string]interface{})
	require.Equal(t, true, meta["published"])
}

func TestResolveDocumentLongFormFallsBackToInitialState(t *testing.T) {
	m := testManager(t)
	resolver := processor.New("did:sidetree", newMemOperationStore(), m)
	w := batch.New(m, fixedClock{}, noopAnchorChain{})

	h := New("did:sidetree", m, fixedClock{}, resolver, w)

	createReq := newCreateRequestBytes(t)

	v := m.Current()
	op, err := v.OperationParser().Parse(operation.TypeCreate, createReq, false)
	require.NoError(t, err)

	longForm := "did:sidetree:" + op.UniqueSuffix + ":" + encoder.EncodeToString(createReq)

	result, status, err := h.ResolveDocument(longForm)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status)

	meta := result["didDocumentMetadata"].(map[string]interface{})["method"].(map[string]interface{})
	require.Equal(t, false, meta["published"])
}

func TestResolveDocumentNotFound(t *testing.T) {
	m := testManager(t)
	resolver := processor.New("did:sidetree", newMemOperationStore(), m)
	w := batch.New(m, fixedClock{}, noopAnchorChain{})

	h := New("did:sidetree", m, fixedClock{}, resolver, w)

	_, status, err := h.ResolveDocument("did:sidetree:unknown")
	require.ErrorIs(t, err, processor.ErrNotFound)
	require.Equal(t, StatusNotFound, status)
}

type noopAnchorChain struct{}

func (noopAnchorChain) Write(string, uint64) error { return nil }

func (noopAnchorChain) Read(uint64, string) (*anchor.ReadResult, error) { return nil, nil }

func (noopAnchorChain) FirstValid([]*txn.Transaction) (*txn.Transaction, error) { return nil, nil }

func (noopAnchorChain) LatestTime() (*anchor.Time, error) { return &anchor.Time{}, nil }

func (noopAnchorChain) WriterValueTimeLock() (*anchor.ValueTimeLock, error) { return nil, nil }
