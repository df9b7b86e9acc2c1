/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package download implements the bounded-concurrency CAS read
// scheduler (spec §4.3): at most maxConcurrentDownloads outstanding
// reads, each classified into one of the outcomes §6.2 defines.
package download

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
)

// Status is a download outcome.
type Status int

const (
	// Success means Result.Content holds the validated content.
	Success Status = iota

	// NotFound means address is unknown to the CAS.
	NotFound

	// MaxSizeExceeded means the content exceeds the requested maxSize.
	MaxSizeExceeded

	// InvalidHash means the content's multihash doesn't match address.
	InvalidHash

	// CasNotReachable means the underlying store could not be reached;
	// this outcome is retryable.
	CasNotReachable
)

// Result is a completed download's outcome.
type Result struct {
	Status  Status
	Content []byte
}

// Manager bounds concurrent CAS reads to at most maxConcurrentDownloads
// outstanding at a time. Completion order is arbitrary; the next queued
// request is dispatched strictly after a slot frees. Cancellation is
// not supported beyond the context deadline a caller supplies.
type Manager struct {
	cas cas.Client
	sem *semaphore.Weighted
}

// New creates a Manager bounded to maxConcurrentDownloads outstanding reads.
func New(casClient cas.Client, maxConcurrentDownloads int64) *Manager {
	return &Manager{cas: casClient, sem: semaphore.NewWeighted(maxConcurrentDownloads)}
}

// Download reads address, enforcing maxSize and multihash validity,
// blocking until a download slot is available or ctx is done.
func (m *Manager) Download(ctx context.Context, address string, maxSize uint64) (*Result, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	defer m.sem.Release(1)

	content, err := m.cas.Read(address)
	if err != nil {
		return &Result{Status: classify(err)}, nil
	}

	if uint64(len(content)) > maxSize {
		return &Result{Status: MaxSizeExceeded}, nil
	}

	if err := hashing.IsValidHash(content, address); err != nil {
		return &Result{Status: InvalidHash}, nil
	}

	return &Result{Status: Success, Content: content}, nil
}

// classify maps a cas.Client.Read error to a download outcome. An
// error the CAS client doesn't surface as one of its two sentinels is
// treated as CasNotReachable, the conservative (retryable) choice.
func classify(err error) Status {
	switch {
	case errors.Is(err, cas.ErrNotFound):
		return NotFound
	default:
		return CasNotReachable
	}
}
