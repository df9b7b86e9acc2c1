/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/signutil"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

// DeactivateRequestInfo contains the data needed to build a deactivate request.
type DeactivateRequestInfo struct {
	// DidSuffix is the suffix of the document to be deactivated.
	DidSuffix string

	// RecoveryKey is the current recovery public key.
	RecoveryKey *jws.JWK

	// Signer signs the request-specific subset of data. Must correspond
	// to RecoveryKey.
	Signer Signer

	// RevealValue is the reveal value for this deactivation.
	RevealValue string

	// AnchorFrom defines the earliest time for this operation.
	AnchorFrom int64

	// AnchorUntil defines the expiry time for this operation.
	AnchorUntil int64
}

// NewDeactivateRequest builds the wire payload for a 'deactivate' request.
func NewDeactivateRequest(info *DeactivateRequestInfo) ([]byte, error) {
	if err := validateDeactivateRequest(info); err != nil {
		return nil, err
	}

	signedDataModel := &model.DeactivateSignedDataModel{
		DidSuffix:   info.DidSuffix,
		RevealValue: info.RevealValue,
		RecoveryKey: info.RecoveryKey,
		AnchorFrom:  info.AnchorFrom,
		AnchorUntil: info.AnchorUntil,
	}

	signedData, err := signutil.SignModel(signedDataModel, info.Signer)
	if err != nil {
		return nil, err
	}

	schema := &model.DeactivateRequest{
		Operation:   operation.TypeDeactivate,
		DidSuffix:   info.DidSuffix,
		RevealValue: info.RevealValue,
		SignedData:  signedData,
	}

	return canonicalizer.MarshalCanonical(schema)
}

func validateDeactivateRequest(info *DeactivateRequestInfo) error {
	if info.DidSuffix == "" {
		return errors.New("missing did unique suffix")
	}

	if info.RevealValue == "" {
		return errors.New("missing reveal value")
	}

	return validateSigner(info.Signer)
}
