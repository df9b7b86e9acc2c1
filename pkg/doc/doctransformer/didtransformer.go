/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package doctransformer builds the external DID resolution envelope
// (spec §6.3) from an internal document state plus resolution
// metadata. It never sees operations or commitments directly.
package doctransformer

import "fmt"

const (
	didContext    = "https://w3id.org/did-resolution/v1"
	docContext    = "https://www.w3.org/ns/did/v1"
	baseContext   = "@base"
	idKey         = "id"
	purposesKey   = "purposes"
	publicKeysKey = "publicKeys"
	servicesKey   = "service"
)

// knownPurposes enumerates the closed set of verification relationships
// a public key entry may declare (spec §4.4).
var knownPurposes = []string{ //nolint:gochecknoglobals
	"authentication",
	"assertionMethod",
	"keyAgreement",
	"capabilityInvocation",
	"capabilityDelegation",
}

// ResolutionModel is the internal, method-agnostic state the Resolver
// produces by folding a DID's anchored operations.
type ResolutionModel struct {
	Doc                map[string]interface{}
	RecoveryCommitment string
	UpdateCommitment   string
	Deactivated        bool

	// PublishedOperations/UnpublishedOperations list the folded
	// operations with and without a CanonicalReference; each list is
	// exposed in method metadata when non-empty. Unanchored operations
	// are folded in through processor.WithAdditionalOperations.
	PublishedOperations   []OperationSummary
	UnpublishedOperations []OperationSummary
}

// OperationSummary is the subset of an anchored operation surfaced in
// method metadata's operation lists.
type OperationSummary struct {
	Type                string `json:"type"`
	TransactionTime     uint64 `json:"transactionTime,omitempty"`
	TransactionNumber   uint64 `json:"transactionNumber,omitempty"`
	CanonicalReference  string `json:"canonicalReference,omitempty"`
}

// TransformationInfo carries envelope-level facts the transformer
// cannot derive from the folded document alone.
type TransformationInfo struct {
	ID           string
	Published    bool
	CanonicalID  string
	EquivalentID []string
}

// Transformer builds the external resolution envelope.
type Transformer struct{}

// New creates a new Transformer.
func New() *Transformer {
	return &Transformer{}
}

// TransformDocument builds the DID resolution envelope for rm/info.
func (t *Transformer) TransformDocument(rm *ResolutionModel, info *TransformationInfo) (map[string]interface{}, error) {
	if rm == nil {
		return nil, fmt.Errorf("resolution model is required to transform a document")
	}

	if info == nil || info.ID == "" {
		return nil, fmt.Errorf("transformation info with an id is required to transform a document")
	}

	didDoc := map[string]interface{}{
		idKey:     info.ID,
		"@context": []interface{}{docContext, map[string]interface{}{baseContext: info.ID}},
	}

	if rm.Deactivated {
		return map[string]interface{}{
			"@context":   didContext,
			"didDocument": didDoc,
			"didDocumentMetadata": map[string]interface{}{
				"method": map[string]interface{}{
					"published":   info.Published,
					"deactivated": true,
				},
			},
		}, nil
	}

	// the composed document keeps services under "services"; the
	// envelope exposes them as "service".
	if svc, ok := rm.Doc["services"]; ok {
		didDoc[servicesKey] = svc
	}

	verificationMethods, relationships, err := populateKeys(rm.Doc, info.ID)
	if err != nil {
		return nil, err
	}

	if len(verificationMethods) > 0 {
		didDoc["verificationMethod"] = verificationMethods
	}

	for purpose, ids := range relationships {
		didDoc[purpose] = ids
	}

	method := map[string]interface{}{
		"published": info.Published,
	}

	if rm.RecoveryCommitment != "" {
		method["recoveryCommitment"] = rm.RecoveryCommitment
	}

	if rm.UpdateCommitment != "" {
		method["updateCommitment"] = rm.UpdateCommitment
	}

	if info.CanonicalID != "" {
		method["canonicalId"] = info.CanonicalID
	}

	if len(info.EquivalentID) > 0 {
		method["equivalentId"] = info.EquivalentID
	}

	if len(rm.PublishedOperations) > 0 {
		method["publishedOperations"] = rm.PublishedOperations
	}

	if len(rm.UnpublishedOperations) > 0 {
		method["unpublishedOperations"] = rm.UnpublishedOperations
	}

	return map[string]interface{}{
		"@context":    didContext,
		"didDocument": didDoc,
		"didDocumentMetadata": map[string]interface{}{
			"method": method,
		},
	}, nil
}

// populateKeys builds the verificationMethod array and the per-purpose
// relationship arrays (authentication, assertionMethod, ...) from the
// document's publicKeys member.
func populateKeys(doc map[string]interface{}, did string) ([]interface{}, map[string][]interface{}, error) {
	rawKeys, ok := doc[publicKeysKey]
	if !ok {
		return nil, nil, nil
	}

	keys, ok := rawKeys.([]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("document publicKeys is not an array")
	}

	relationships := make(map[string][]interface{})

	verificationMethods := make([]interface{}, 0, len(keys))

	for _, raw := range keys {
		key, ok := raw.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("publicKeys entry is not an object")
		}

		id, _ := key["id"].(string) //nolint:errcheck

		vm := map[string]interface{}{}
		for k, v := range key {
			if k == purposesKey {
				continue
			}

			vm[k] = v
		}

		vm["id"] = did + id
		vm["controller"] = did

		verificationMethods = append(verificationMethods, vm)

		purposes, _ := key[purposesKey].([]interface{}) //nolint:errcheck

		seen := make(map[string]bool, len(purposes))

		for _, rawPurpose := range purposes {
			purpose, ok := rawPurpose.(string)
			if !ok || !isKnownPurpose(purpose) || seen[purpose] {
				continue
			}

			seen[purpose] = true
			relationships[purpose] = append(relationships[purpose], did+id)
		}
	}

	return verificationMethods, relationships, nil
}

func isKnownPurpose(purpose string) bool {
	for _, p := range knownPurposes {
		if p == purpose {
			return true
		}
	}

	return false
}
