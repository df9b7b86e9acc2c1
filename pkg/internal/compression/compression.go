/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package compression implements the file hierarchy's gzip+JSON
// envelope: every core-index, provisional-index, proof, and chunk file
// is compressed before being written to the CAS and decompressed,
// against a decompression-bomb size cap, before being parsed.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip is the only compression algorithm this protocol version
// recognizes (protocol.Protocol.CompressionAlgorithm).
const Gzip = "GZIP"

// Registry maps algorithm names to their codec.
type Registry struct {
	algorithms map[string]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultAlgorithms registers the algorithms this node supports:
// GZIP.
func WithDefaultAlgorithms() Option {
	return func(r *Registry) { r.algorithms[Gzip] = true }
}

// New creates a new compression Registry.
func New(opts ...Option) *Registry {
	r := &Registry{algorithms: make(map[string]bool)}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Compress compresses data using alg.
func (r *Registry) Compress(alg string, data []byte) ([]byte, error) {
	if !r.algorithms[alg] {
		return nil, fmt.Errorf("compression algorithm '%s' not supported", alg)
	}

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %s", err.Error())
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %s", err.Error())
	}

	return buf.Bytes(), nil
}

// Decompress decompresses data using alg, stopping once maxSize bytes
// have been read so a maliciously crafted file cannot exhaust memory
// via an extreme compression ratio.
func (r *Registry) Decompress(alg string, data []byte, maxSize int64) ([]byte, error) {
	if !r.algorithms[alg] {
		return nil, fmt.Errorf("compression algorithm '%s' not supported", alg)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("new gzip reader: %s", err.Error())
	}

	defer gr.Close() //nolint:errcheck

	limited := io.LimitReader(gr, maxSize+1)

	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %s", err.Error())
	}

	if int64(len(out)) > maxSize {
		return nil, fmt.Errorf("decompressed content exceeds maximum size %d", maxSize)
	}

	return out, nil
}
