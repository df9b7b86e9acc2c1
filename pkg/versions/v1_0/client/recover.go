/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/signutil"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

// RecoverRequestInfo contains the data needed to build a recover request.
type RecoverRequestInfo struct {
	// DidSuffix is the suffix of the document to be recovered.
	DidSuffix string

	// RecoveryKey is the current recovery public key.
	RecoveryKey *jws.JWK

	// OpaqueDocument is opaque document content.
	// Required if Patches is not specified.
	OpaqueDocument string

	// Patches that will be used to re-create the document.
	// Required if OpaqueDocument is not specified.
	Patches []patch.Patch

	// RecoveryCommitment is the commitment to be used for the next recovery.
	RecoveryCommitment string

	// UpdateCommitment is the commitment to be used for the next update.
	UpdateCommitment string

	// AnchorOrigin signifies the system(s) that know the most recent
	// anchor for this DID (optional).
	AnchorOrigin interface{}

	// AnchorFrom defines the earliest time for this operation.
	AnchorFrom int64

	// AnchorUntil defines the expiry time for this operation.
	AnchorUntil int64

	// MultihashCode is the latest hashing algorithm supported by the protocol.
	MultihashCode uint

	// Signer signs the request-specific subset of data. Must correspond
	// to RecoveryKey.
	Signer Signer

	// RevealValue is the reveal value for this recovery.
	RevealValue string
}

// NewRecoverRequest builds the wire payload for a 'recover' request.
func NewRecoverRequest(info *RecoverRequestInfo) ([]byte, error) {
	if err := validateRecoverRequest(info); err != nil {
		return nil, err
	}

	patches, err := getPatches(info.OpaqueDocument, info.Patches)
	if err != nil {
		return nil, err
	}

	delta := &operation.DeltaModel{
		UpdateCommitment: info.UpdateCommitment,
		Patches:          patches,
	}

	deltaHash, err := hashing.CalculateModelMultihash(delta, info.MultihashCode)
	if err != nil {
		return nil, err
	}

	signedDataModel := &model.RecoverSignedDataModel{
		DeltaHash:          deltaHash,
		RecoveryKey:        info.RecoveryKey,
		RecoveryCommitment: info.RecoveryCommitment,
		AnchorOrigin:       info.AnchorOrigin,
		AnchorFrom:         info.AnchorFrom,
		AnchorUntil:        info.AnchorUntil,
	}

	if err := validateCommitment(info.RecoveryKey, info.MultihashCode, info.RecoveryCommitment); err != nil {
		return nil, err
	}

	signedData, err := signutil.SignModel(signedDataModel, info.Signer)
	if err != nil {
		return nil, err
	}

	schema := &model.RecoverRequest{
		Operation:   operation.TypeRecover,
		DidSuffix:   info.DidSuffix,
		RevealValue: info.RevealValue,
		Delta:       delta,
		SignedData:  signedData,
	}

	return canonicalizer.MarshalCanonical(schema)
}

func validateRecoverRequest(info *RecoverRequestInfo) error {
	if info.DidSuffix == "" {
		return errors.New("missing did unique suffix")
	}

	if info.RevealValue == "" {
		return errors.New("missing reveal value")
	}

	if info.OpaqueDocument == "" && len(info.Patches) == 0 {
		return errors.New("either opaque document or patches have to be supplied")
	}

	if info.OpaqueDocument != "" && len(info.Patches) > 0 {
		return errors.New("cannot provide both opaque document and patches")
	}

	if err := validateSigner(info.Signer); err != nil {
		return err
	}

	return validateRecoveryKey(info.RecoveryKey)
}

func validateRecoveryKey(key *jws.JWK) error {
	if key == nil {
		return errors.New("missing recovery key")
	}

	return key.Validate()
}
