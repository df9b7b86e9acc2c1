/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operationapplier folds a single anchored operation onto a DID
// state (spec §4.8, step 3): it is the only place that enforces
// commitment/reveal binding and patch application order during
// resolution.
package operationapplier

import (
	"encoding/json"
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doccomposer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

// State is the DID state folded so far (spec §3, "DID state").
type State struct {
	Doc                    map[string]interface{}
	NextRecoveryCommitment string
	NextUpdateCommitment   string
	LastOperationTxnNumber uint64
}

// Applier applies a single anchored operation to a DID state.
type Applier struct {
	protocol protocol.Protocol
	composer *doccomposer.DocumentComposer
}

// New creates a new Applier.
func New(p protocol.Protocol, composer *doccomposer.DocumentComposer) *Applier {
	return &Applier{protocol: p, composer: composer}
}

// Apply applies op (already structurally validated at parse
// time) onto state and returns the resulting state. A nil state means
// no create has succeeded yet for this DID.
func (a *Applier) Apply(op *operation.AnchoredOperation, state *State) (*State, error) {
	switch op.Type {
	case operation.TypeCreate:
		return a.applyCreate(op, state)
	case operation.TypeUpdate:
		return a.applyUpdate(op, state)
	case operation.TypeRecover:
		return a.applyRecover(op, state)
	case operation.TypeDeactivate:
		return a.applyDeactivate(op, state)
	default:
		return nil, fmt.Errorf("operation type %s not supported", op.Type)
	}
}

func (a *Applier) applyCreate(op *operation.AnchoredOperation, state *State) (*State, error) {
	if state != nil {
		return nil, fmt.Errorf("create operation is only allowed once per did")
	}

	if op.SuffixData == nil || op.Delta == nil {
		return nil, fmt.Errorf("missing suffix data or delta for create operation")
	}

	if err := hashing.IsValidModelMultihash(op.Delta, op.SuffixData.DeltaHash); err != nil {
		return nil, fmt.Errorf("delta doesn't match delta hash: %s", err.Error())
	}

	doc, err := a.composer.ApplyPatches(nil, op.Delta.Patches)
	if err != nil {
		return nil, err
	}

	return &State{
		Doc:                    doc,
		NextRecoveryCommitment: op.SuffixData.RecoveryCommitment,
		NextUpdateCommitment:   op.Delta.UpdateCommitment,
		LastOperationTxnNumber: op.TransactionNumber,
	}, nil
}

func (a *Applier) applyUpdate(op *operation.AnchoredOperation, state *State) (*State, error) {
	if state == nil {
		return nil, fmt.Errorf("update operation requires an existing document")
	}

	sig, err := jws.ParseJWS(op.SignedData)
	if err != nil {
		return nil, err
	}

	var signedData struct {
		UpdateKey *jws.JWK `json:"updateKey"`
		DeltaHash string   `json:"deltaHash"`
	}

	if err := unmarshalPayload(sig.Payload, &signedData); err != nil {
		return nil, err
	}

	if err := hashing.IsValidModelMultihash(signedData.UpdateKey, state.NextUpdateCommitment); err != nil {
		return nil, fmt.Errorf("update key doesn't match next update commitment: %s", err.Error())
	}

	if err := sig.Verify(signedData.UpdateKey); err != nil {
		return nil, fmt.Errorf("update signature verification failed: %s", err.Error())
	}

	if err := hashing.IsValidModelMultihash(op.Delta, signedData.DeltaHash); err != nil {
		return nil, fmt.Errorf("delta doesn't match delta hash: %s", err.Error())
	}

	doc, err := a.composer.ApplyPatches(state.Doc, op.Delta.Patches)
	if err != nil {
		return nil, err
	}

	return &State{
		Doc:                    doc,
		NextRecoveryCommitment: state.NextRecoveryCommitment,
		NextUpdateCommitment:   op.Delta.UpdateCommitment,
		LastOperationTxnNumber: op.TransactionNumber,
	}, nil
}

func (a *Applier) applyRecover(op *operation.AnchoredOperation, state *State) (*State, error) {
	if state == nil {
		return nil, fmt.Errorf("recover operation requires an existing document")
	}

	sig, err := jws.ParseJWS(op.SignedData)
	if err != nil {
		return nil, err
	}

	var signedData struct {
		DeltaHash          string   `json:"deltaHash"`
		RecoveryKey        *jws.JWK `json:"recoveryKey"`
		RecoveryCommitment string   `json:"recoveryCommitment"`
	}

	if err := unmarshalPayload(sig.Payload, &signedData); err != nil {
		return nil, err
	}

	if err := hashing.IsValidModelMultihash(signedData.RecoveryKey, state.NextRecoveryCommitment); err != nil {
		return nil, fmt.Errorf("recovery key doesn't match next recovery commitment: %s", err.Error())
	}

	if err := sig.Verify(signedData.RecoveryKey); err != nil {
		return nil, fmt.Errorf("recovery signature verification failed: %s", err.Error())
	}

	if err := hashing.IsValidModelMultihash(op.Delta, signedData.DeltaHash); err != nil {
		return nil, fmt.Errorf("delta doesn't match delta hash: %s", err.Error())
	}

	doc, err := a.composer.ApplyPatches(make(map[string]interface{}), op.Delta.Patches)
	if err != nil {
		return nil, err
	}

	return &State{
		Doc:                    doc,
		NextRecoveryCommitment: signedData.RecoveryCommitment,
		NextUpdateCommitment:   op.Delta.UpdateCommitment,
		LastOperationTxnNumber: op.TransactionNumber,
	}, nil
}

func (a *Applier) applyDeactivate(op *operation.AnchoredOperation, state *State) (*State, error) {
	if state == nil {
		return nil, fmt.Errorf("deactivate operation requires an existing document")
	}

	sig, err := jws.ParseJWS(op.SignedData)
	if err != nil {
		return nil, err
	}

	var signedData struct {
		DidSuffix   string   `json:"didSuffix"`
		RevealValue string   `json:"revealValue"`
		RecoveryKey *jws.JWK `json:"recoveryKey"`
	}

	if err := unmarshalPayload(sig.Payload, &signedData); err != nil {
		return nil, err
	}

	if signedData.DidSuffix != op.UniqueSuffix {
		return nil, fmt.Errorf("signed did suffix doesn't match operation")
	}

	if err := hashing.IsValidModelMultihash(signedData.RecoveryKey, state.NextRecoveryCommitment); err != nil {
		return nil, fmt.Errorf("recovery key doesn't match next recovery commitment: %s", err.Error())
	}

	if err := sig.Verify(signedData.RecoveryKey); err != nil {
		return nil, fmt.Errorf("deactivate signature verification failed: %s", err.Error())
	}

	return &State{
		Doc:                    nil,
		NextRecoveryCommitment: "",
		NextUpdateCommitment:   "",
		LastOperationTxnNumber: op.TransactionNumber,
	}, nil
}

func unmarshalPayload(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal signed data payload: %s", err.Error())
	}

	return nil
}
