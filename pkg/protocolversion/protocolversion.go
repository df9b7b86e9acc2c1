/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package protocolversion picks the protocol version active at a given
// ledger time (spec §4.1, "ProtocolVersionManager") and exposes the
// per-version component bundle the rest of the node drives operations
// through.
package protocolversion

import (
	"sort"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doccomposer"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doctransformer"
	"github.com/trustbloc/sidetree-svc-go/pkg/processor"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/operationparser"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider"
)

// Version bundles a single protocol version's parameters with the
// components built on top of them.
type Version interface {
	Protocol() protocol.Protocol
	OperationParser() *operationparser.Parser
	OperationApplier() processor.OperationApplier
	OperationProvider() *txnprovider.OperationProvider
	OperationHandler() *txnprovider.OperationHandler
	DocumentComposer() *doccomposer.DocumentComposer
	DocumentTransformer() *doctransformer.Transformer
}

// Manager selects the Version active at a given transaction time, by
// descending GenesisTime. It satisfies processor.VersionGetter directly.
type Manager struct {
	versions []Version
}

// New creates a Manager over versions, which must be non-empty. The
// versions are sorted by GenesisTime; callers need not pre-sort.
func New(versions []Version) (*Manager, error) {
	if len(versions) == 0 {
		return nil, errNoVersions
	}

	sorted := make([]Version, len(versions))
	copy(sorted, versions)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Protocol().GenesisTime < sorted[j].Protocol().GenesisTime
	})

	return &Manager{versions: sorted}, nil
}

var errNoVersions = versionManagerError("protocol version manager requires at least one version")

type versionManagerError string

func (e versionManagerError) Error() string { return string(e) }

// VersionAt returns the Version whose GenesisTime is the greatest one
// not exceeding transactionTime.
func (m *Manager) VersionAt(transactionTime uint64) (Version, error) {
	var active Version

	for _, v := range m.versions {
		if v.Protocol().GenesisTime > transactionTime {
			break
		}

		active = v
	}

	if active == nil {
		return nil, &protocol.ErrProtocolVersionNotFound{LedgerTime: transactionTime}
	}

	return active, nil
}

// Current returns the Version active at the greatest GenesisTime known
// to the manager, used wherever "now" stands in for an exact
// transaction time (e.g. validating an incoming operation request
// before it has been anchored).
func (m *Manager) Current() Version {
	return m.versions[len(m.versions)-1]
}

// ApplierAt implements processor.VersionGetter.
func (m *Manager) ApplierAt(transactionTime uint64) (processor.OperationApplier, error) {
	v, err := m.VersionAt(transactionTime)
	if err != nil {
		return nil, err
	}

	return v.OperationApplier(), nil
}
