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

// ParseCreateOperation parses and validates a create operation request.
func (p *Parser) ParseCreateOperation(request []byte, batch bool) (*operation.Operation, error) {
	schema, err := p.parseCreateRequest(request)
	if err != nil {
		return nil, err
	}

	if !batch {
		if err := p.ValidateDelta(schema.Delta); err != nil {
			return nil, err
		}

		if err := p.validateSuffixData(schema.SuffixData); err != nil {
			return nil, err
		}
	}

	if err := hashing.IsValidModelMultihash(schema.Delta, schema.SuffixData.DeltaHash); err != nil {
		return nil, fmt.Errorf("delta doesn't match delta hash: %s", err.Error())
	}

	suffix, err := hashing.CalculateSuffix(schema.SuffixData, p.MultihashAlgorithms[0])
	if err != nil {
		return nil, fmt.Errorf("calculate unique suffix: %s", err.Error())
	}

	return &operation.Operation{
		Type:             operation.TypeCreate,
		OperationRequest: request,
		UniqueSuffix:     suffix,
		Delta:            schema.Delta,
		SuffixData:       schema.SuffixData,
		AnchorOrigin:     schema.SuffixData.AnchorOrigin,
	}, nil
}

func (p *Parser) parseCreateRequest(payload []byte) (*model.CreateRequest, error) {
	schema := &model.CreateRequest{}

	if err := json.Unmarshal(payload, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal create request: %s", err.Error())
	}

	if schema.SuffixData == nil {
		return nil, errors.New("missing suffix data")
	}

	if schema.Delta == nil {
		return nil, errors.New("missing delta")
	}

	return schema, nil
}

func (p *Parser) validateSuffixData(suffixData *operation.SuffixDataModel) error {
	if err := p.anchorOriginValidator.Validate(suffixData.AnchorOrigin); err != nil {
		return err
	}

	return p.validateMultihash(suffixData.RecoveryCommitment, "recovery commitment")
}
