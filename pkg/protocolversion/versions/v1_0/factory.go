/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package v1_0 wires protocol version 1.0's components together: the
// operation parser, applier, document composer/transformer, and the
// txnprovider pair, all built from a single protocol.Protocol
// parameter set.
package v1_0

import (
	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doccomposer"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doctransformer"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/processor"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/operationapplier"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/operationparser"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/txnprovider"
)

// compressionRegistry is the subset of compression.Registry the
// factory's txnprovider components need.
type compressionRegistry interface {
	Compress(alg string, data []byte) ([]byte, error)
	Decompress(alg string, data []byte, maxSize int64) ([]byte, error)
}

// Version is the protocol version 1.0 component bundle.
type Version struct {
	protocol    protocol.Protocol
	parser      *operationparser.Parser
	applier     *operationapplier.Applier
	provider    *txnprovider.OperationProvider
	handler     *txnprovider.OperationHandler
	composer    *doccomposer.DocumentComposer
	transformer *doctransformer.Transformer
}

// New builds the protocol version 1.0 component bundle from p, wiring
// casClient and reg (playing both compression and decompression
// provider roles) into the txnprovider pair. dl bounds the
// OperationProvider's concurrent CAS reads; casClient is used
// directly by the OperationHandler, whose writes aren't subject to
// the same download concurrency cap.
func New(p protocol.Protocol, casClient cas.Client, dl *download.Manager, reg compressionRegistry, opts ...operationparser.Option) *Version {
	dc := doccomposer.New()

	return &Version{
		protocol:    p,
		parser:      operationparser.New(p, opts...),
		applier:     operationapplier.New(p, dc),
		provider:    txnprovider.NewOperationProvider(p, dl, reg),
		handler:     txnprovider.NewOperationHandler(p, casClient, reg),
		composer:    dc,
		transformer: doctransformer.New(),
	}
}

// Protocol returns this version's parameter set.
func (v *Version) Protocol() protocol.Protocol { return v.protocol }

// OperationParser returns this version's OperationParser.
func (v *Version) OperationParser() *operationparser.Parser { return v.parser }

// OperationApplier returns this version's OperationApplier, typed as
// the processor.OperationApplier interface to satisfy
// protocolversion.Version.
func (v *Version) OperationApplier() processor.OperationApplier { return v.applier }

// OperationProvider returns this version's OperationProvider.
func (v *Version) OperationProvider() *txnprovider.OperationProvider { return v.provider }

// OperationHandler returns this version's OperationHandler.
func (v *Version) OperationHandler() *txnprovider.OperationHandler { return v.handler }

// DocumentComposer returns this version's DocumentComposer.
func (v *Version) DocumentComposer() *doccomposer.DocumentComposer { return v.composer }

// DocumentTransformer returns this version's DocumentTransformer.
func (v *Version) DocumentTransformer() *doctransformer.Transformer { return v.transformer }
