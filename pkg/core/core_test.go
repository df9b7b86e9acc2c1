/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
	"github.com/trustbloc/sidetree-svc-go/pkg/dochandler"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/compression"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	v1_0 "github.com/trustbloc/sidetree-svc-go/pkg/protocolversion/versions/v1_0"
	"github.com/trustbloc/sidetree-svc-go/pkg/storage/memstore"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

const coreTestMultihashCode = 18

func newCreateRequestBytes(t *testing.T) []byte {
	t.Helper()

	delta := &operation.DeltaModel{
		Patches: []patch.Patch{patch.NewReplacePatch(map[string]interface{}{})},
	}

	updateCommitment, err := hashing.CalculateHash([]byte("update-key"), coreTestMultihashCode)
	require.NoError(t, err)
	delta.UpdateCommitment = updateCommitment

	deltaHash, err := hashing.CalculateModelMultihash(delta, coreTestMultihashCode)
	require.NoError(t, err)

	recoveryCommitment, err := hashing.CalculateHash([]byte("recovery-key"), coreTestMultihashCode)
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

type nopCAS struct{}

func (nopCAS) Read(string) ([]byte, error)  { return nil, nil }
func (nopCAS) Write([]byte) (string, error) { return "", nil }

type noopAnchorChain struct{}

func (noopAnchorChain) Write(string, uint64) error { return nil }

func (noopAnchorChain) Read(uint64, string) (*anchor.ReadResult, error) {
	return &anchor.ReadResult{}, nil
}

func (noopAnchorChain) FirstValid([]*txn.Transaction) (*txn.Transaction, error) { return nil, nil }

func (noopAnchorChain) LatestTime() (*anchor.Time, error) { return &anchor.Time{}, nil }

func (noopAnchorChain) WriterValueTimeLock() (*anchor.ValueTimeLock, error) { return nil, nil }

func testManager(t *testing.T) *protocolversion.Manager {
	t.Helper()

	p := protocol.Protocol{
		GenesisTime:            0,
		VersionID:              "1.0",
		MultihashAlgorithms:    []uint{18},
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

func testStores() Stores {
	return Stores{
		Operation:    memstore.NewOperationStore(),
		Transaction:  memstore.NewTransactionStore(),
		Unresolvable: memstore.NewUnresolvableTransactionStore(),
		ServiceState: memstore.NewServiceStateStore(),
	}
}

func TestNewRunsUnconfiguredWithNeitherObserverNorWriter(t *testing.T) {
	c, err := New(testManager(t), testStores(), noopAnchorChain{}, nopCAS{}, Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	defer c.Stop()

	require.Nil(t, c.observer)
	require.Nil(t, c.writer)
	require.NotNil(t, c.Downloads())
}

func TestStartLaunchesObserverAndWriterWhenConfigured(t *testing.T) {
	stores := testStores()

	c, err := New(testManager(t), stores, noopAnchorChain{}, nopCAS{}, Config{
		ObservingInterval: time.Hour,
		BatchingInterval:  time.Hour,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	defer c.Stop()

	require.NotNil(t, c.observer)
	require.NotNil(t, c.writer)
}

func TestStartResumesObserverFromLastTransaction(t *testing.T) {
	stores := testStores()
	require.NoError(t, stores.Transaction.Put(&txn.Transaction{TransactionNumber: 7, TransactionTimeHash: "h7"}))

	chain := &cursorCapturingChain{}

	c, err := New(testManager(t), stores, chain, nopCAS{}, Config{
		ObservingInterval: time.Hour,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	defer c.Stop()

	require.Eventually(t, func() bool { return chain.sinceSeen() }, time.Second, time.Millisecond)
	since, hash := chain.lastRead()
	require.Equal(t, uint64(7), since)
	require.Equal(t, "h7", hash)
}

// cursorCapturingChain records the cursor its first Read call observes,
// so a test can assert Core.Start resumed the Observer from the
// TransactionStore's last entry rather than from a zero cursor.
type cursorCapturingChain struct {
	noopAnchorChain

	mu    sync.Mutex
	seen  bool
	since uint64
	hash  string
}

func (c *cursorCapturingChain) Read(since uint64, hash string) (*anchor.ReadResult, error) {
	c.mu.Lock()
	if !c.seen {
		c.seen, c.since, c.hash = true, since, hash
	}
	c.mu.Unlock()

	return &anchor.ReadResult{}, nil
}

func (c *cursorCapturingChain) sinceSeen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seen
}

func (c *cursorCapturingChain) lastRead() (uint64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.since, c.hash
}

func TestStartWritesCurrentDatabaseVersionOnFirstRun(t *testing.T) {
	stores := testStores()

	c, err := New(testManager(t), stores, noopAnchorChain{}, nopCAS{}, Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	c.Stop()

	state, err := stores.ServiceState.Get()
	require.NoError(t, err)
	require.Equal(t, CurrentDatabaseVersion, state.DatabaseVersion)
}

func TestStartReindexesOnStaleDatabaseVersion(t *testing.T) {
	stores := testStores()
	require.NoError(t, stores.Transaction.Put(&txn.Transaction{TransactionNumber: 1}))
	require.NoError(t, stores.ServiceState.Put(&store.ServiceState{DatabaseVersion: CurrentDatabaseVersion - 1}))

	c, err := New(testManager(t), stores, noopAnchorChain{}, nopCAS{}, Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	c.Stop()

	last, err := stores.Transaction.Last()
	require.NoError(t, err)
	require.Nil(t, last)

	state, err := stores.ServiceState.Get()
	require.NoError(t, err)
	require.Equal(t, CurrentDatabaseVersion, state.DatabaseVersion)
}

func TestStartFailsOnNewerDatabaseVersion(t *testing.T) {
	stores := testStores()
	require.NoError(t, stores.ServiceState.Put(&store.ServiceState{DatabaseVersion: CurrentDatabaseVersion + 1}))

	c, err := New(testManager(t), stores, noopAnchorChain{}, nopCAS{}, Config{}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, c.Start(), ErrDatabaseDowngradeNotAllowed)
}

func TestNewBuildsRequestHandler(t *testing.T) {
	c, err := New(testManager(t), testStores(), noopAnchorChain{}, nopCAS{}, Config{Namespace: "did:sidetree"}, nil)
	require.NoError(t, err)

	require.NotNil(t, c.RequestHandler())

	_, _, err = c.RequestHandler().ResolveDocument("did:sidetree:unknownsuffix")
	require.Error(t, err)
}

func TestNewRequestHandlerReturnsErrorRatherThanPanicWhenBatchingDisabled(t *testing.T) {
	c, err := New(testManager(t), testStores(), noopAnchorChain{}, nopCAS{}, Config{Namespace: "did:sidetree"}, nil)
	require.NoError(t, err)

	require.Nil(t, c.Writer())

	_, status, err := c.RequestHandler().ProcessOperation(newCreateRequestBytes(t))
	require.ErrorIs(t, err, dochandler.ErrBatchWriterDisabled)
	require.Equal(t, dochandler.StatusServerError, status)
}
