/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package download_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
)

type mockCAS struct {
	content map[string][]byte
	err     error
}

func (m *mockCAS) Read(address string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}

	content, ok := m.content[address]
	if !ok {
		return nil, cas.ErrNotFound
	}

	return content, nil
}

func (m *mockCAS) Write([]byte) (string, error) { return "", nil }

func TestDownloadSuccess(t *testing.T) {
	content := []byte("hello")

	const multihashCodeSHA256 = 18

	address, err := hashing.CalculateHash(content, multihashCodeSHA256)
	require.NoError(t, err)

	m := &mockCAS{content: map[string][]byte{address: content}}

	mgr := download.New(m, 2)

	result, err := mgr.Download(context.Background(), address, 100)
	require.NoError(t, err)
	require.Equal(t, download.Success, result.Status)
	require.Equal(t, content, result.Content)
}

func TestDownloadNotFound(t *testing.T) {
	m := &mockCAS{content: map[string][]byte{}}
	mgr := download.New(m, 2)

	result, err := mgr.Download(context.Background(), "missing", 100)
	require.NoError(t, err)
	require.Equal(t, download.NotFound, result.Status)
}

func TestDownloadMaxSizeExceeded(t *testing.T) {
	content := []byte("hello world")

	const multihashCodeSHA256 = 18

	address, err := hashing.CalculateHash(content, multihashCodeSHA256)
	require.NoError(t, err)

	m := &mockCAS{content: map[string][]byte{address: content}}
	mgr := download.New(m, 2)

	result, err := mgr.Download(context.Background(), address, 3)
	require.NoError(t, err)
	require.Equal(t, download.MaxSizeExceeded, result.Status)
}

func TestDownloadInvalidHash(t *testing.T) {
	content := []byte("hello")

	const multihashCodeSHA256 = 18

	wrongAddress, err := hashing.CalculateHash([]byte("other"), multihashCodeSHA256)
	require.NoError(t, err)

	m := &mockCAS{content: map[string][]byte{wrongAddress: content}}
	mgr := download.New(m, 2)

	result, err := mgr.Download(context.Background(), wrongAddress, 100)
	require.NoError(t, err)
	require.Equal(t, download.InvalidHash, result.Status)
}

func TestDownloadNotReachable(t *testing.T) {
	m := &mockCAS{err: cas.ErrNotReachable}
	mgr := download.New(m, 2)

	result, err := mgr.Download(context.Background(), "any", 100)
	require.NoError(t, err)
	require.Equal(t, download.CasNotReachable, result.Status)
}
