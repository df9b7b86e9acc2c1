/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package core wires the node's components together (spec §4.10): the
// ProtocolVersionManager, the four persisted stores, the Observer, the
// BatchWriter, the ledger clock, the DownloadManager, and the
// RequestHandler (spec §4.9) that sits in front of the Resolver and
// BatchWriter. It also owns the one-time, DatabaseVersion-gated store
// re-index that runs before any of those components starts.
package core

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/batch"
	"github.com/trustbloc/sidetree-svc-go/pkg/dochandler"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/ledgerclock"
	"github.com/trustbloc/sidetree-svc-go/pkg/observer"
	"github.com/trustbloc/sidetree-svc-go/pkg/processor"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	"github.com/trustbloc/sidetree-svc-go/pkg/store/unpublished"
)

var logger = log.New("core")

// CurrentDatabaseVersion is the schema version this build of the node
// expects its stores to hold. Bump it whenever a change to the stored
// shapes requires existing nodes to re-index from the chain.
const CurrentDatabaseVersion = 1

// ErrDatabaseDowngradeNotAllowed is returned by Start when the stores
// were last written by a newer version of the node than this one.
var ErrDatabaseDowngradeNotAllowed = coreError(
	"database version is newer than this node's expected version, refusing to start",
)

type coreError string

func (e coreError) Error() string { return string(e) }

// Stores bundles the four persistence contracts a Core instance owns.
type Stores struct {
	Operation    store.OperationStore
	Transaction  store.TransactionStore
	Unresolvable store.UnresolvableTransactionStore
	ServiceState store.ServiceStateStore
}

// Config holds the node-level settings Core needs beyond its
// collaborators: the two component intervals that gate whether the
// Observer and BatchWriter run at all (spec §4.10, "if
// observingInterval>0" / "if batchingInterval>0"), and the bound on
// concurrent CAS downloads shared by the Observer and DownloadManager.
type Config struct {
	Namespace              string
	ObservingInterval      time.Duration
	BatchingInterval       time.Duration
	MaxConcurrentDownloads int64
}

// Core orchestrates the node's long-running components. The zero
// value is not usable; construct with New.
type Core struct {
	versions *protocolversion.Manager
	stores   Stores
	chain    anchor.Client
	cas      cas.Client
	cfg      Config

	downloads *download.Manager
	clock     *ledgerclock.Clock
	observer  *observer.Observer
	writer    *batch.Writer
	handler   *dochandler.DocumentHandler
}

// batchWriter is the subset of *batch.Writer the RequestHandler needs
// to admit an operation. Satisfied structurally by *batch.Writer and by
// dochandler.DisabledWriter.
type batchWriter interface {
	Submit(op *operation.Operation) error
}

// New creates a Core. SelectorFactory may be nil, in which case the
// Observer's default (observer.NewSelectorFactory) is used.
func New(
	versions *protocolversion.Manager,
	stores Stores,
	chain anchor.Client,
	casClient cas.Client,
	cfg Config,
	selectorFactory observer.SelectorFactory,
) (*Core, error) {
	if cfg.MaxConcurrentDownloads <= 0 {
		cfg.MaxConcurrentDownloads = observer.DefaultMaxConcurrentDownloads
	}

	if selectorFactory == nil {
		selectorFactory = observer.NewSelectorFactory()
	}

	clock, err := ledgerclock.New(chain, stores.ServiceState)
	if err != nil {
		return nil, errors.Wrap(err, "create ledger clock")
	}

	c := &Core{
		versions:  versions,
		stores:    stores,
		chain:     chain,
		cas:       casClient,
		cfg:       cfg,
		downloads: download.New(casClient, cfg.MaxConcurrentDownloads),
		clock:     clock,
	}

	if cfg.ObservingInterval > 0 {
		c.observer = observer.New(
			chain, versions, stores.Operation, stores.Transaction, stores.Unresolvable, selectorFactory,
			observer.WithInterval(cfg.ObservingInterval),
			observer.WithMaxConcurrentDownloads(cfg.MaxConcurrentDownloads),
		)
	}

	if cfg.BatchingInterval > 0 {
		c.writer = batch.New(versions, clock, chain, batch.WithCutInterval(cfg.BatchingInterval))
	}

	resolver := processor.New(cfg.Namespace, stores.Operation, versions)

	var writer batchWriter = dochandler.DisabledWriter{}
	if c.writer != nil {
		writer = c.writer
	}

	c.handler = dochandler.New(
		cfg.Namespace, versions, clock, resolver, writer,
		dochandler.WithUnpublishedOperationStore(unpublished.New()),
	)

	return c, nil
}

// Start performs the one-time database upgrade check, resumes the
// Observer's cursor from the last committed transaction, and launches
// the ledger clock, Observer, and BatchWriter (each only if configured
// with a positive interval). It returns before any of the periodic
// loops have necessarily run once.
func (c *Core) Start() error {
	if err := c.upgradeIfNeeded(); err != nil {
		return err
	}

	c.clock.Start()

	if c.observer != nil {
		last, err := c.stores.Transaction.Last()
		if err != nil {
			return errors.Wrap(err, "load last transaction for observer resume")
		}

		if last != nil {
			c.observer.Resume(last.TransactionNumber, last.TransactionTimeHash)
		}

		c.observer.Start()

		logger.Info("observer started")
	}

	if c.writer != nil {
		c.writer.Start()

		logger.Info("batch writer started")
	}

	return nil
}

// Stop stops whichever of the ledger clock, Observer, and BatchWriter
// were started, in reverse order.
func (c *Core) Stop() {
	if c.writer != nil {
		c.writer.Stop()
	}

	if c.observer != nil {
		c.observer.Stop()
	}

	c.clock.Stop()
}

// Downloads returns the DownloadManager Core builds over its CAS
// client. The protocol versions' transaction providers read batch
// files through the download.Manager each version was built with.
func (c *Core) Downloads() *download.Manager {
	return c.downloads
}

// Writer returns the BatchWriter, or nil if batching is disabled.
func (c *Core) Writer() *batch.Writer {
	return c.writer
}

// RequestHandler returns the node's RequestHandler (spec §4.9): the
// external entry point for submitting an operation request and
// resolving a DID. It is always built, independent of
// ObservingInterval/BatchingInterval. When BatchingInterval<=0, the
// handler was constructed with a dochandler.DisabledWriter in place of
// a real BatchWriter, so ProcessOperation returns
// dochandler.ErrBatchWriterDisabled instead of admitting anything.
func (c *Core) RequestHandler() *dochandler.DocumentHandler {
	return c.handler
}

// upgradeIfNeeded compares the stores' persisted DatabaseVersion
// against CurrentDatabaseVersion. An older version triggers a full
// re-index: the operation, transaction and unresolvable-transaction
// stores are cleared so the Observer rebuilds them by replaying the
// chain from the beginning, and the new version is persisted. A
// newer version fails startup outright, since this build doesn't know
// how to read state a future version wrote.
func (c *Core) upgradeIfNeeded() error {
	state, err := c.stores.ServiceState.Get()
	if err != nil {
		return errors.Wrap(err, "load service state")
	}

	if state == nil {
		state = &store.ServiceState{}
	}

	switch {
	case state.DatabaseVersion == CurrentDatabaseVersion:
		return nil
	case state.DatabaseVersion > CurrentDatabaseVersion:
		return ErrDatabaseDowngradeNotAllowed
	}

	logger.Info("database version behind current, re-indexing from genesis",
		log.WithField("stored", state.DatabaseVersion), log.WithField("current", CurrentDatabaseVersion))

	if err := c.stores.Operation.DeleteAbove(0); err != nil {
		return errors.Wrap(err, "clear operation store")
	}

	if err := c.stores.Transaction.DeleteAbove(0); err != nil {
		return errors.Wrap(err, "clear transaction store")
	}

	if err := c.stores.Unresolvable.DeleteAbove(0); err != nil {
		return errors.Wrap(err, "clear unresolvable transaction store")
	}

	state.DatabaseVersion = CurrentDatabaseVersion

	return errors.Wrap(c.stores.ServiceState.Put(state), "persist upgraded database version")
}
