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
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

// ParseDeactivateOperation parses and validates a deactivate operation request.
func (p *Parser) ParseDeactivateOperation(request []byte, batch bool) (*operation.Operation, error) {
	schema, err := p.parseDeactivateRequest(request)
	if err != nil {
		return nil, err
	}

	signedData, err := p.ParseSignedDataForDeactivate(schema.SignedData)
	if err != nil {
		return nil, err
	}

	if signedData.DidSuffix != schema.DidSuffix {
		return nil, errors.New("did suffix doesn't match signed data")
	}

	if signedData.RevealValue != schema.RevealValue {
		return nil, errors.New("reveal value doesn't match signed data")
	}

	if !batch {
		until := p.getAnchorUntil(signedData.AnchorFrom, signedData.AnchorUntil)

		if err := p.anchorTimeValidator.Validate(signedData.AnchorFrom, until); err != nil {
			return nil, err
		}
	}

	if err := hashing.IsValidModelMultihash(signedData.RecoveryKey, schema.RevealValue); err != nil {
		return nil, fmt.Errorf("canonicalized recovery public key hash doesn't match reveal value: %s", err.Error())
	}

	return &operation.Operation{
		OperationRequest: request,
		Type:             operation.TypeDeactivate,
		UniqueSuffix:     schema.DidSuffix,
		SignedData:       schema.SignedData,
		RevealValue:      schema.RevealValue,
	}, nil
}

func (p *Parser) parseDeactivateRequest(payload []byte) (*model.DeactivateRequest, error) {
	schema := &model.DeactivateRequest{}

	if err := json.Unmarshal(payload, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deactivate request: %s", err.Error())
	}

	if schema.DidSuffix == "" {
		return nil, errors.New("missing did suffix")
	}

	if schema.SignedData == "" {
		return nil, errors.New("missing signed data")
	}

	if err := p.validateMultihash(schema.RevealValue, "reveal value"); err != nil {
		return nil, err
	}

	return schema, nil
}

// ParseSignedDataForDeactivate parses and validates the signed data
// payload of a deactivate operation.
func (p *Parser) ParseSignedDataForDeactivate(compactJWS string) (*model.DeactivateSignedDataModel, error) {
	signedData, err := p.parseSignedData(compactJWS)
	if err != nil {
		return nil, err
	}

	schema := &model.DeactivateSignedDataModel{}

	if err := json.Unmarshal(signedData.Payload, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signed data model for deactivate: %s", err.Error())
	}

	if err := p.validateSigningKey(schema.RecoveryKey); err != nil {
		return nil, fmt.Errorf("validate signed data for deactivate: %s", err.Error())
	}

	return schema, nil
}
