/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operationparser

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	internal "github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

// ParseUpdateOperation parses and validates an update operation request.
func (p *Parser) ParseUpdateOperation(request []byte, batch bool) (*operation.Operation, error) {
	schema, err := p.parseUpdateRequest(request)
	if err != nil {
		return nil, err
	}

	signedData, err := p.ParseSignedDataForUpdate(schema.SignedData)
	if err != nil {
		return nil, err
	}

	if !batch {
		until := p.getAnchorUntil(signedData.AnchorFrom, signedData.AnchorUntil)

		if err := p.anchorTimeValidator.Validate(signedData.AnchorFrom, until); err != nil {
			return nil, err
		}

		if err := p.ValidateDelta(schema.Delta); err != nil {
			return nil, err
		}
	}

	if err := hashing.IsValidModelMultihash(schema.Delta, signedData.DeltaHash); err != nil {
		return nil, fmt.Errorf("delta doesn't match delta hash: %s", err.Error())
	}

	if err := hashing.IsValidModelMultihash(signedData.UpdateKey, schema.RevealValue); err != nil {
		return nil, fmt.Errorf("canonicalized update public key hash doesn't match reveal value: %s", err.Error())
	}

	return &operation.Operation{
		OperationRequest: request,
		Type:             operation.TypeUpdate,
		UniqueSuffix:     schema.DidSuffix,
		Delta:            schema.Delta,
		SignedData:       schema.SignedData,
		RevealValue:      schema.RevealValue,
	}, nil
}

func (p *Parser) parseUpdateRequest(payload []byte) (*model.UpdateRequest, error) {
	schema := &model.UpdateRequest{}

	if err := json.Unmarshal(payload, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update request: %s", err.Error())
	}

	if err := p.validateUpdateRequest(schema); err != nil {
		return nil, err
	}

	return schema, nil
}

func (p *Parser) validateUpdateRequest(req *model.UpdateRequest) error {
	if req.DidSuffix == "" {
		return errors.New("missing did suffix")
	}

	if req.SignedData == "" {
		return errors.New("missing signed data")
	}

	return p.validateMultihash(req.RevealValue, "reveal value")
}

// ParseSignedDataForUpdate parses and validates the signed data payload
// of an update operation.
func (p *Parser) ParseSignedDataForUpdate(compactJWS string) (*model.UpdateSignedDataModel, error) {
	signedData, err := p.parseSignedData(compactJWS)
	if err != nil {
		return nil, err
	}

	schema := &model.UpdateSignedDataModel{}

	if err := json.Unmarshal(signedData.Payload, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signed data model for update: %s", err.Error())
	}

	if err := p.validateSigningKey(schema.UpdateKey); err != nil {
		return nil, fmt.Errorf("validate signed data for update: %s", err.Error())
	}

	if err := p.validateMultihash(schema.DeltaHash, "delta hash"); err != nil {
		return nil, fmt.Errorf("validate signed data for update: %s", err.Error())
	}

	return schema, nil
}

func (p *Parser) parseSignedData(compactJWS string) (*internal.JSONWebSignature, error) {
	if compactJWS == "" {
		return nil, errors.New("missing signed data")
	}

	sig, err := internal.ParseJWS(compactJWS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed data: %s", err.Error())
	}

	if err := p.validateProtectedHeaders(sig.ProtectedHeaders); err != nil {
		return nil, fmt.Errorf("failed to parse signed data: %s", err.Error())
	}

	return sig, nil
}

func (p *Parser) validateProtectedHeaders(headers internal.Headers) error {
	if headers == nil {
		return errors.New("missing protected headers")
	}

	alg, ok := headers.Algorithm()
	if !ok || alg == "" {
		return errors.New("algorithm must be present in the protected header")
	}

	allowedHeaders := map[string]bool{
		internal.HeaderAlgorithm: true,
		internal.HeaderKeyID:     true,
	}

	for k := range headers {
		if !allowedHeaders[k] {
			return fmt.Errorf("invalid protected header: %s", k)
		}
	}

	if !contains(p.SignatureAlgorithms, alg) {
		return errors.Errorf("algorithm '%s' is not in the allowed list %v", alg, p.SignatureAlgorithms)
	}

	return nil
}

func (p *Parser) validateSigningKey(key *internal.JWK) error {
	if key == nil {
		return errors.New("missing signing key")
	}

	if err := key.Validate(); err != nil {
		return fmt.Errorf("signing key validation failed: %s", err.Error())
	}

	if !contains(p.KeyAlgorithms, key.Crv) {
		return errors.Errorf("key algorithm '%s' is not in the allowed list %v", key.Crv, p.KeyAlgorithms)
	}

	if err := p.validateNonce(key.Nonce); err != nil {
		return fmt.Errorf("validate signing key nonce: %s", err.Error())
	}

	return nil
}

func (p *Parser) validateNonce(nonce string) error {
	if nonce == "" {
		return nil
	}

	nonceBytes, err := encoder.DecodeString(nonce)
	if err != nil {
		return fmt.Errorf("failed to decode nonce '%s': %s", nonce, err.Error())
	}

	if len(nonceBytes) != int(p.NonceSize) {
		return fmt.Errorf("nonce size '%d' doesn't match configured nonce size '%d'", len(nonceBytes), p.NonceSize)
	}

	return nil
}

func (p *Parser) getAnchorUntil(from, until int64) int64 {
	if from != 0 && until == 0 {
		return from + int64(p.MaxDeltaSize)
	}

	return until
}
