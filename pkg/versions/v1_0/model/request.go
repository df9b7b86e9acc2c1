/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package model holds the wire-level request and signed-data payloads
// for protocol version 1.0. These are the JSON shapes clients submit
// and operation parsers consume; the resulting operation.Operation is
// version-agnostic.
package model

import (
	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
)

// CreateRequest is the wire payload for a create operation.
type CreateRequest struct {
	Operation  operation.Type            `json:"type,omitempty"`
	SuffixData *operation.SuffixDataModel `json:"suffixData,omitempty"`
	Delta      *operation.DeltaModel      `json:"delta,omitempty"`
}

// UpdateRequest is the wire payload for an update operation.
type UpdateRequest struct {
	Operation   operation.Type        `json:"type"`
	DidSuffix   string                `json:"didSuffix"`
	RevealValue string                `json:"revealValue"`
	SignedData  string                `json:"signedData"`
	Delta       *operation.DeltaModel `json:"delta"`
}

// RecoverRequest is the wire payload for a recovery operation.
type RecoverRequest struct {
	Operation   operation.Type        `json:"type"`
	DidSuffix   string                `json:"didSuffix"`
	RevealValue string                `json:"revealValue"`
	SignedData  string                `json:"signedData"`
	Delta       *operation.DeltaModel `json:"delta"`
}

// DeactivateRequest is the wire payload for a deactivate operation.
type DeactivateRequest struct {
	Operation   operation.Type `json:"type"`
	DidSuffix   string         `json:"didSuffix"`
	RevealValue string         `json:"revealValue"`
	SignedData  string         `json:"signedData"`
}

// UpdateSignedDataModel is the JWS payload signed over an update request.
type UpdateSignedDataModel struct {
	UpdateKey   *jws.JWK `json:"updateKey"`
	DeltaHash   string   `json:"deltaHash"`
	AnchorFrom  int64    `json:"anchorFrom,omitempty"`
	AnchorUntil int64    `json:"anchorUntil,omitempty"`
}

// RecoverSignedDataModel is the JWS payload signed over a recovery request.
type RecoverSignedDataModel struct {
	DeltaHash          string      `json:"deltaHash"`
	RecoveryKey        *jws.JWK    `json:"recoveryKey"`
	RecoveryCommitment string      `json:"recoveryCommitment"`
	AnchorOrigin       interface{} `json:"anchorOrigin,omitempty"`
	AnchorFrom         int64       `json:"anchorFrom,omitempty"`
	AnchorUntil        int64       `json:"anchorUntil,omitempty"`
}

// DeactivateSignedDataModel is the JWS payload signed over a deactivate request.
type DeactivateSignedDataModel struct {
	DidSuffix   string   `json:"didSuffix"`
	RevealValue string   `json:"revealValue"`
	RecoveryKey *jws.JWK `json:"recoveryKey"`
	AnchorFrom  int64    `json:"anchorFrom,omitempty"`
	AnchorUntil int64    `json:"anchorUntil,omitempty"`
}
