/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operationparser turns raw operation request bytes into the
// version-agnostic operation.Operation model, enforcing every
// structural and cryptographic invariant protocol version 1.0 places
// on create/update/recover/deactivate requests.
package operationparser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
)

// AnchorOriginValidator validates the optional anchorOrigin carried by
// recover and create operations against deployment policy.
type AnchorOriginValidator interface {
	Validate(anchorOrigin interface{}) error
}

// AnchorTimeValidator validates the anchorFrom/anchorUntil window
// carried by recover and update operations.
type AnchorTimeValidator interface {
	Validate(from, until int64) error
}

type defaultAnchorOriginValidator struct{}

func (defaultAnchorOriginValidator) Validate(interface{}) error { return nil }

type defaultAnchorTimeValidator struct{}

func (defaultAnchorTimeValidator) Validate(int64, int64) error { return nil }

// Option configures a Parser.
type Option func(*Parser)

// WithAnchorOriginValidator overrides the anchorOrigin validator.
func WithAnchorOriginValidator(v AnchorOriginValidator) Option {
	return func(p *Parser) { p.anchorOriginValidator = v }
}

// WithAnchorTimeValidator overrides the anchorFrom/anchorUntil validator.
func WithAnchorTimeValidator(v AnchorTimeValidator) Option {
	return func(p *Parser) { p.anchorTimeValidator = v }
}

// Parser parses and validates operation requests for protocol version 1.0.
type Parser struct {
	protocol.Protocol

	anchorOriginValidator AnchorOriginValidator
	anchorTimeValidator   AnchorTimeValidator
}

// New creates a new operation Parser for the given protocol parameters.
func New(p protocol.Protocol, opts ...Option) *Parser {
	parser := &Parser{
		Protocol:              p,
		anchorOriginValidator: defaultAnchorOriginValidator{},
		anchorTimeValidator:   defaultAnchorTimeValidator{},
	}

	for _, opt := range opts {
		opt(parser)
	}

	return parser
}

// Parse parses an operation request of the given type. batch indicates
// whether this parse happens while re-assembling an already-anchored
// batch (in which case anchorOrigin/anchorTime/delta re-validation is
// skipped, since it already happened at submission time).
func (p *Parser) Parse(opType operation.Type, request []byte, batch bool) (*operation.Operation, error) {
	switch opType {
	case operation.TypeCreate:
		return p.ParseCreateOperation(request, batch)
	case operation.TypeUpdate:
		return p.ParseUpdateOperation(request, batch)
	case operation.TypeRecover:
		return p.ParseRecoverOperation(request, batch)
	case operation.TypeDeactivate:
		return p.ParseDeactivateOperation(request, batch)
	default:
		return nil, fmt.Errorf("operation type %s not supported", opType)
	}
}

// ValidateDelta validates a delta object's size and patch list.
func (p *Parser) ValidateDelta(delta *operation.DeltaModel) error {
	if delta == nil {
		return errors.New("missing delta")
	}

	if err := p.validateMultihash(delta.UpdateCommitment, "update commitment"); err != nil {
		return err
	}

	if len(delta.Patches) == 0 {
		return errors.New("missing patches")
	}

	for _, pt := range delta.Patches {
		if err := patch.Validate(pt); err != nil {
			return err
		}

		action, err := pt.GetAction()
		if err != nil {
			return err
		}

		if !p.patchActionAllowed(action) {
			return fmt.Errorf("%s patch action is not allowed by current protocol version", action)
		}
	}

	return nil
}

func (p *Parser) patchActionAllowed(action patch.Action) bool {
	if len(p.Patches) == 0 {
		return true
	}

	for _, allowed := range p.Patches {
		if allowed == string(action) {
			return true
		}
	}

	return false
}

func (p *Parser) validateMultihash(mh, alias string) error {
	if len(mh) == 0 {
		return fmt.Errorf("missing %s", alias)
	}

	if len(mh) > int(p.MaxOperationHashLength) {
		return fmt.Errorf("%s length %d exceeds maximum hash length %d", alias, len(mh), p.MaxOperationHashLength)
	}

	if _, err := encoder.DecodeString(mh); err != nil {
		return fmt.Errorf("%s is not valid base64url: %s", alias, err.Error())
	}

	if !hashing.IsComputedUsingMultihashAlgorithms(mh, p.MultihashAlgorithms) {
		return fmt.Errorf("%s is not computed with one of the allowed hash algorithms", alias)
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}
