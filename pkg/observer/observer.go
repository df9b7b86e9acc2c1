/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package observer implements the Observer ingestion state machine
// (spec §4.7): it reads new transactions off the AnchorChain, applies
// the version-selected TransactionSelector, dispatches each selected
// transaction to a TransactionProcessor bounded by maxConcurrentDownloads,
// and advances a monotone commit cursor once processing completes in
// order.
package observer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/txn"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
)

var logger = log.New("observer")

// DefaultInterval is the default period between observer ticks.
const DefaultInterval = 60 * time.Second

// DefaultBaseDelay is the base of the unresolvable-transaction
// exponential backoff schedule.
const DefaultBaseDelay = 60 * time.Second

// DefaultMaxConcurrentDownloads bounds the number of transactions
// processed concurrently within a single tick.
const DefaultMaxConcurrentDownloads = 10

// status is a queued transaction's processing state.
type status int

const (
	statusPending status = iota
	statusProcessed
)

// queuedTransaction is a TransactionUnderProcessing entry.
type queuedTransaction struct {
	transaction    *txn.Transaction
	status         status
	attempts       int
	firstFetchTime int64
	nextRetryTime  int64
}

func (e *queuedTransaction) dueFor(now int64) bool {
	return e.status == statusPending && e.nextRetryTime <= now
}

// Observer is the ingestion state machine. It is single-worker: only
// one tick may run at a time (spec §5, "The Observer is single
// logical-worker at a time").
type Observer struct {
	chain             anchor.Client
	versions          *protocolversion.Manager
	opStore           store.OperationStore
	txStore           store.TransactionStore
	unresolvableStore store.UnresolvableTransactionStore
	selectorFactory   SelectorFactory

	interval               time.Duration
	baseDelay              time.Duration
	maxConcurrentDownloads int64

	cursorMutex                  sync.Mutex
	lastKnownTransactionNumber   uint64
	lastKnownTransactionTimeHash string
	pending                      []*queuedTransaction

	stop chan struct{}
	done chan struct{}
}

// Option configures an Observer.
type Option func(*Observer)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(o *Observer) { o.interval = d }
}

// WithBaseDelay overrides DefaultBaseDelay.
func WithBaseDelay(d time.Duration) Option {
	return func(o *Observer) { o.baseDelay = d }
}

// WithMaxConcurrentDownloads overrides DefaultMaxConcurrentDownloads.
func WithMaxConcurrentDownloads(n int64) Option {
	return func(o *Observer) { o.maxConcurrentDownloads = n }
}

// New creates an Observer. It starts with a zero cursor: a caller
// resuming from a prior run should call Resume before Start.
func New(
	chain anchor.Client,
	versions *protocolversion.Manager,
	opStore store.OperationStore,
	txStore store.TransactionStore,
	unresolvableStore store.UnresolvableTransactionStore,
	selectorFactory SelectorFactory,
	opts ...Option,
) *Observer {
	o := &Observer{
		chain:                  chain,
		versions:               versions,
		opStore:                opStore,
		txStore:                txStore,
		unresolvableStore:      unresolvableStore,
		selectorFactory:        selectorFactory,
		interval:               DefaultInterval,
		baseDelay:              DefaultBaseDelay,
		maxConcurrentDownloads: DefaultMaxConcurrentDownloads,
		stop:                   make(chan struct{}),
		done:                   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Resume sets the commit cursor an Observer starts reading from,
// typically loaded from the last transaction recorded in the
// TransactionStore at startup.
func (o *Observer) Resume(transactionNumber uint64, transactionTimeHash string) {
	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	o.lastKnownTransactionNumber = transactionNumber
	o.lastKnownTransactionTimeHash = transactionTimeHash
}

// Start launches the periodic ingestion loop.
func (o *Observer) Start() {
	go o.run()
}

// Stop signals the loop to exit and waits for the in-flight tick, if
// any, to finish.
func (o *Observer) Stop() {
	close(o.stop)
	<-o.done
}

func (o *Observer) run() {
	defer close(o.done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.tick()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick performs one main-loop iteration (spec §4.7, steps 1-6).
func (o *Observer) tick() {
	now := time.Now().Unix()

	if err := o.mergeDueRetries(now); err != nil {
		logger.Warn("merge due retries failed", log.WithError(err))
	}

	since, hash := o.cursor()

	result, err := o.chain.Read(since, hash)
	if err != nil {
		if errors.Is(err, anchor.ErrInvalidTransactionNumberOrTimeHash) {
			o.reorg()

			return
		}

		logger.Warn("read anchor chain failed", log.WithError(err))

		return
	}

	o.selectAndEnqueue(result.Transactions)
	o.dispatchDue(now)
	o.commit()

	if !result.MoreTransactions {
		logger.Info("observer_loop_success")
	}
}

// cursor returns the last-known transaction cursor.
func (o *Observer) cursor() (uint64, string) {
	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	return o.lastKnownTransactionNumber, o.lastKnownTransactionTimeHash
}

// mergeDueRetries snapshots the unresolvable retry queue and merges
// due entries into the in-memory pending queue as Pending, restoring
// their attempt counts so backoff recovers across a restart.
func (o *Observer) mergeDueRetries(now int64) error {
	due, err := o.unresolvableStore.GetDueForRetry(now)
	if err != nil {
		return err
	}

	if len(due) == 0 {
		return nil
	}

	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	for _, u := range due {
		o.pending = append(o.pending, &queuedTransaction{
			transaction:    u.Transaction,
			status:         statusPending,
			attempts:       u.Attempts,
			firstFetchTime: u.FirstFetchTime,
		})
	}

	sortPending(o.pending)

	return nil
}

// selectAndEnqueue groups transactions into blocks by TransactionTime,
// applies each block's TransactionSelector, and appends the selected
// transactions to the pending queue as fresh Pending entries.
func (o *Observer) selectAndEnqueue(transactions []*txn.Transaction) {
	blocks := groupByBlock(transactions)

	var selected []*txn.Transaction

	for _, block := range blocks {
		v, err := o.versions.VersionAt(block[0].TransactionTime)
		if err != nil {
			logger.Warn("no protocol version for block, skipping",
				logfields.WithTransactionTime(block[0].TransactionTime), log.WithError(err))

			continue
		}

		sel := o.selectorFactory.SelectorFor(v, o.txStore)

		picked, err := sel.SelectTransactions(block)
		if err != nil {
			logger.Warn("select transactions failed, skipping block",
				logfields.WithTransactionTime(block[0].TransactionTime), log.WithError(err))

			continue
		}

		selected = append(selected, picked...)
	}

	if len(selected) == 0 {
		return
	}

	now := time.Now().Unix()

	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	for _, t := range selected {
		o.pending = append(o.pending, &queuedTransaction{transaction: t, status: statusPending, firstFetchTime: now})
	}

	sortPending(o.pending)
}

// dispatchDue processes every pending entry whose retry backoff has
// elapsed, concurrently, bounded by maxConcurrentDownloads.
func (o *Observer) dispatchDue(now int64) {
	o.cursorMutex.Lock()
	var due []*queuedTransaction

	for _, e := range o.pending {
		if e.dueFor(now) {
			due = append(due, e)
		}
	}
	o.cursorMutex.Unlock()

	if len(due) == 0 {
		return
	}

	sem := semaphore.NewWeighted(o.maxConcurrentDownloads)
	ctx := context.Background()

	var wg sync.WaitGroup

	for _, e := range due {
		e := e

		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Warn("acquire dispatch slot failed", log.WithError(err))

			break
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer sem.Release(1)

			o.processOne(ctx, e, now)
		}()
	}

	wg.Wait()
}

func (o *Observer) processOne(ctx context.Context, e *queuedTransaction, now int64) {
	outcome := process(ctx, o.versions, o.opStore, e.transaction)

	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	switch outcome {
	case outcomeSuccess:
		e.status = statusProcessed
	case outcomeRetry:
		e.attempts++
		e.nextRetryTime = e.firstFetchTime + int64((1<<uint(e.attempts))*o.baseDelay.Seconds()) //nolint:gosec

		if err := o.unresolvableStore.Put(&store.UnresolvableTransaction{
			Transaction:    e.transaction,
			Attempts:       e.attempts,
			FirstFetchTime: e.firstFetchTime,
			NextRetryTime:  e.nextRetryTime,
		}); err != nil {
			logger.Warn("persist retry schedule failed",
				logfields.WithTransaction(e.transaction.TransactionNumber), log.WithError(err))
		}
	}
}

// commit drains the front of the pending queue while entries are
// Processed, appending each to the TransactionStore and advancing the
// cursor; it stops at the first Pending entry so the cursor never
// passes an unfinished transaction.
func (o *Observer) commit() {
	o.cursorMutex.Lock()
	defer o.cursorMutex.Unlock()

	i := 0

	for ; i < len(o.pending); i++ {
		e := o.pending[i]
		if e.status != statusProcessed {
			break
		}

		if err := o.txStore.Put(e.transaction); err != nil {
			logger.Warn("persist committed transaction failed",
				logfields.WithTransaction(e.transaction.TransactionNumber), log.WithError(err))

			break
		}

		o.lastKnownTransactionNumber = e.transaction.TransactionNumber
		o.lastKnownTransactionTimeHash = e.transaction.TransactionTimeHash
	}

	o.pending = o.pending[i:]
}

func sortPending(pending []*queuedTransaction) {
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].transaction.TransactionNumber < pending[j].transaction.TransactionNumber
	})
}

// groupByBlock partitions transactions into contiguous runs sharing
// the same TransactionTime, preserving arrival order.
func groupByBlock(transactions []*txn.Transaction) [][]*txn.Transaction {
	var blocks [][]*txn.Transaction

	var current []*txn.Transaction

	for _, t := range transactions {
		if len(current) > 0 && current[0].TransactionTime != t.TransactionTime {
			blocks = append(blocks, current)
			current = nil
		}

		current = append(current, t)
	}

	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	return blocks
}
