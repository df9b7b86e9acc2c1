/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package observer

import (
	"github.com/trustbloc/sidetree-svc-go/pkg/api/store"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	"github.com/trustbloc/sidetree-svc-go/pkg/txnselector"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider/models"
)

// SelectorFactory binds a protocol Version's per-block caps and
// anchor-string format to a txnselector.Selector, so the Observer stays
// independent of any one version's wire format.
type SelectorFactory interface {
	SelectorFor(v protocolversion.Version, txStore store.TransactionStore) *txnselector.Selector
}

// defaultSelectorFactory builds a Selector from the Version's own
// Protocol parameters, decoding anchor strings with
// txnprovider/models.OperationCount (the only wire format any shipped
// protocol version currently uses).
type defaultSelectorFactory struct{}

// NewSelectorFactory returns the Observer's default SelectorFactory.
func NewSelectorFactory() SelectorFactory {
	return defaultSelectorFactory{}
}

func (defaultSelectorFactory) SelectorFor(v protocolversion.Version, txStore store.TransactionStore) *txnselector.Selector {
	p := v.Protocol()

	return txnselector.New(
		txnselector.DecoderFunc(models.OperationCount),
		p.MaxOperationsPerBlock,
		p.MaxTransactionsPerBlock,
		txStore,
	)
}
