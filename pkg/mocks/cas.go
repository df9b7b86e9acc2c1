/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
)

// DefaultMultihashCode is the multihash code CAS addresses the mock
// assigns content.
const DefaultMultihashCode = 18 // SHA2-256

// CAS is an in-memory cas.Client, addressing content by its own
// multihash so download.Manager's address/content hash check behaves
// the same way it would against a real content-addressable store.
type CAS struct {
	mu      sync.RWMutex
	content map[string][]byte
	readErr error
}

// NewCAS creates an empty CAS. A non-nil readErr is returned in place
// of cas.ErrNotFound when Read is asked for an address it doesn't
// hold, to exercise the unreachable path; stored addresses still read.
func NewCAS(readErr error) *CAS {
	return &CAS{content: make(map[string][]byte), readErr: readErr}
}

// Read returns the content stored at address.
func (c *CAS) Read(address string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.content[address]
	if !ok {
		if c.readErr != nil {
			return nil, c.readErr
		}

		return nil, cas.ErrNotFound
	}

	return data, nil
}

// Write stores content under its own multihash address.
func (c *CAS) Write(content []byte) (string, error) {
	address, err := hashing.CalculateHash(content, DefaultMultihashCode)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.content[address] = content

	return address, nil
}
