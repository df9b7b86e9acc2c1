/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledgerclock caches the ledger's approximate current time so
// request handlers never block on the ledger (spec §4.2).
package ledgerclock

import (
	"sync/atomic"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/anchor"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
)

var logger = log.New("ledgerclock")

// DefaultRefreshInterval is the default period between ledger polls.
const DefaultRefreshInterval = 60 * time.Second

// cachedTime is the atomically-swapped snapshot getTime() serves.
type cachedTime struct {
	time uint64
	hash string
}

// Clock holds a periodically refreshed, cached approximate ledger time.
type Clock struct {
	chain    anchor.Client
	state    store.ServiceStateStore
	interval time.Duration

	current atomic.Value // cachedTime

	stop chan struct{}
	done chan struct{}
}

// Option configures a Clock.
type Option func(*Clock)

// WithRefreshInterval overrides DefaultRefreshInterval.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Clock) { c.interval = d }
}

// New creates a Clock and loads its initial cached value from state,
// so the node can answer resolutions during a network partition before
// the first refresh completes.
func New(chain anchor.Client, state store.ServiceStateStore, opts ...Option) (*Clock, error) {
	c := &Clock{
		chain:    chain,
		state:    state,
		interval: DefaultRefreshInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	s, err := state.Get()
	if err != nil {
		return nil, err
	}

	if s != nil {
		c.current.Store(cachedTime{time: s.ApproximateTime, hash: s.ApproximateHash})
	} else {
		c.current.Store(cachedTime{})
	}

	return c, nil
}

// Start launches the periodic refresh loop. It is a single periodic
// task; calling Start twice is not supported.
func (c *Clock) Start() {
	go c.run()
}

// Stop signals the refresh loop to exit and waits for it to do so. It
// does not pre-empt a refresh already in flight.
func (c *Clock) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Clock) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.refresh()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.refresh()
		}
	}
}

func (c *Clock) refresh() {
	t, err := c.chain.LatestTime()
	if err != nil {
		logger.Warn("refresh ledger clock failed, keeping last cached value", log.WithError(err))

		return
	}

	c.current.Store(cachedTime{time: t.Time, hash: t.Hash})

	s, err := c.state.Get()
	if err != nil {
		logger.Warn("load service state failed, skipping persistence of refreshed ledger time", log.WithError(err))

		return
	}

	if s == nil {
		s = &store.ServiceState{}
	}

	s.ApproximateTime = t.Time
	s.ApproximateHash = t.Hash

	if err := c.state.Put(s); err != nil {
		logger.Warn("persist refreshed ledger time failed", log.WithError(err))
	}
}

// Time returns the last cached ledger time. Callers never block on the
// ledger.
func (c *Clock) Time() uint64 {
	return c.current.Load().(cachedTime).time //nolint:forcetypeassert
}

// TimeHash returns the last cached ledger time hash.
func (c *Clock) TimeHash() string {
	return c.current.Load().(cachedTime).hash //nolint:forcetypeassert
}
