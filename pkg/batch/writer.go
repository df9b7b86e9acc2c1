/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package batch implements the BatchWriter: an admission queue that
// accepts parsed operations one at a time, and a periodic cutter that
// batches the queue's front into a file hierarchy and anchors it to
// the ledger (spec §4.5).
package batch

import (
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/logfields"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
)

var logger = log.New("batch")

// DefaultCutInterval is the default period between publish attempts.
const DefaultCutInterval = time.Second

// ErrMultipleOperationsPerDID is returned by Submit when the admission
// queue already holds an operation for the requesting DID.
var ErrMultipleOperationsPerDID = writerError("queueing multiple operations per did not allowed")

type writerError string

func (e writerError) Error() string { return string(e) }

// Writer is the BatchWriter: single-worker admission queue plus
// periodic cutter. Submit is safe to call concurrently with a running
// cut; Start/Stop run the periodic cutter as the node's single
// BatchWriter worker (spec §5, "The BatchWriter is single-worker at a
// time").
type Writer struct {
	versions *protocolversion.Manager
	clock    ledgerClock
	chain    anchor.Client
	queue    *queue
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// ledgerClock is the subset of ledgerclock.Clock the Writer needs to
// select the active protocol version.
type ledgerClock interface {
	Time() uint64
}

// Option configures a Writer.
type Option func(*Writer)

// WithCutInterval overrides DefaultCutInterval.
func WithCutInterval(d time.Duration) Option {
	return func(w *Writer) { w.interval = d }
}

// New creates a Writer.
func New(versions *protocolversion.Manager, clock ledgerClock, chain anchor.Client, opts ...Option) *Writer {
	w := &Writer{
		versions: versions,
		clock:    clock,
		chain:    chain,
		queue:    newQueue(),
		interval: DefaultCutInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start launches the periodic cutter.
func (w *Writer) Start() {
	go w.run()
}

// Stop signals the cutter to exit and waits for it to do so. A cut
// already in flight is allowed to finish.
func (w *Writer) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.cut()
		}
	}
}

// Submit enqueues op, deriving a Create operation's unique suffix with
// the protocol version of greatest GenesisTime (versions.Current())
// rather than the one active at the current ledger time
// (Update/Recover/Deactivate already carry one).
func (w *Writer) Submit(op *operation.Operation) error {
	suffix := op.UniqueSuffix

	if op.Type == operation.TypeCreate {
		v := w.versions.Current()

		code := suffixMultihashCode(v)

		s, err := hashing.CalculateSuffix(op.SuffixData, code)
		if err != nil {
			return err
		}

		suffix = s
		op.UniqueSuffix = s
	}

	return w.queue.add(op, suffix)
}

func suffixMultihashCode(v protocolversion.Version) uint {
	algs := v.Protocol().MultihashAlgorithms
	if len(algs) == 0 {
		return 0
	}

	return algs[0]
}

// QueueLength returns the number of operations currently admitted but
// not yet anchored.
func (w *Writer) QueueLength() int {
	return w.queue.len()
}

// cut performs one periodic publish attempt (spec §4.5 steps 1-8). Any
// error before the ledger write succeeds leaves the queue unchanged, so
// the same operations are retried on the next tick.
func (w *Writer) cut() {
	w.dropExpired()

	v := w.versions.Current()
	p := v.Protocol()

	lock, err := w.chain.WriterValueTimeLock()
	if err != nil {
		logger.Warn("read writer value-time-lock failed, using protocol maximum", log.WithError(err))
	}

	batchSize := writerMaxBatchSize(lock, p.ValueTimeLockAmountMultiplier, p.MaxOperationCount)

	n := min3(batchSize, int(p.MaxOperationCount), w.queue.len())
	if n == 0 {
		return
	}

	ops := w.queue.peek(n)

	var writerLockID string

	var normalizedFee uint64

	if lock != nil {
		writerLockID = lock.Identifier
		normalizedFee = lock.NormalizedFee
	}

	anchorString, err := v.OperationHandler().PrepareTxnFiles(writerLockID, ops)
	if err != nil {
		logger.Warn("prepare batch files failed, retrying next tick", log.WithError(err))

		return
	}

	fee := normalizedFee

	if multiplied := normalizedFee * uint64(p.NormalizedFeeToPerOperationFeeMultiplier) * uint64(n); multiplied > fee {
		fee = multiplied
	}

	if err := w.chain.Write(anchorString, fee); err != nil {
		logger.Warn("anchor batch failed, retrying next tick", log.WithError(err))

		return
	}

	suffixes := make([]string, n)
	for i, op := range ops {
		suffixes[i] = op.UniqueSuffix
	}

	w.queue.removeFront(n, suffixes)
}

// dropExpired drops every queued operation whose AnchorUntil has
// passed as of the current ledger time, logging each one, before the
// batch for this cut is selected. Expiry is permanent: an expired
// operation is discarded rather than retried on a later tick.
func (w *Writer) dropExpired() {
	now := int64(w.clock.Time())

	for _, op := range w.queue.dropExpired(now) {
		logger.Info("dropped expired operation",
			logfields.WithSuffix(op.UniqueSuffix), logfields.WithOperationType(string(op.Type)),
			log.WithField("anchorUntil", op.AnchorUntil), log.WithField("now", now))
	}
}

// writerMaxBatchSize derives the writer's allowed batch size from its
// current value-time-lock, capped by the protocol maximum. A writer
// with no lock is capped to the protocol maximum directly.
func writerMaxBatchSize(lock *anchor.ValueTimeLock, multiplier, protocolMax uint) int {
	if lock == nil {
		return int(protocolMax)
	}

	scaled := lock.AmountLocked * uint64(multiplier)
	if scaled > uint64(protocolMax) {
		return int(protocolMax)
	}

	return int(scaled)
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
