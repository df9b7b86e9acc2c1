/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operationparser

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

const (
	longFormSeparator = ":"
	didSeparator      = ":"
)

// ParseDID inspects a resolution request and returns the short-form DID
// plus, for a long-form DID, the embedded create request bytes used to
// resolve it when the DID isn't yet (or never gets) anchored.
func (p *Parser) ParseDID(namespace, shortOrLongFormDID string) (string, []byte, error) {
	withoutNamespace := strings.ReplaceAll(shortOrLongFormDID, namespace+didSeparator, "")
	posLongFormSeparator := strings.Index(withoutNamespace, longFormSeparator)

	if posLongFormSeparator == -1 {
		return shortOrLongFormDID, nil, nil
	}

	// long form format: '<namespace>:<unique-portion>:Base64url(JCS({suffix-data, delta}))'
	endOfDIDPos := strings.LastIndex(shortOrLongFormDID, longFormSeparator)

	did := shortOrLongFormDID[0:endOfDIDPos]
	longFormDID := shortOrLongFormDID[endOfDIDPos+1:]

	createRequest, err := p.parseInitialState(longFormDID)
	if err != nil {
		return "", nil, err
	}

	createRequestBytes, err := canonicalizer.MarshalCanonical(createRequest)
	if err != nil {
		return "", nil, err
	}

	return did, createRequestBytes, nil
}

func (p *Parser) parseInitialState(initialState string) (*model.CreateRequest, error) {
	decodedJCS, err := encoder.DecodeString(initialState)
	if err != nil {
		return nil, err
	}

	var createRequest model.CreateRequest

	if err := json.Unmarshal(decodedJCS, &createRequest); err != nil {
		return nil, err
	}

	expected, err := canonicalizer.MarshalCanonical(createRequest)
	if err != nil {
		return nil, err
	}

	if encoder.EncodeToString(expected) != initialState {
		return nil, errors.New("initial state is not valid")
	}

	createRequest.Operation = operation.TypeCreate

	return &createRequest, nil
}
