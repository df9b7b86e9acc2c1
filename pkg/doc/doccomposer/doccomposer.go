/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package doccomposer folds a sequence of patches onto a document
// state. It knows nothing about operation types, commitments, or
// signatures; the processor package is responsible for deciding which
// patches apply and in what order.
package doccomposer

import (
	"fmt"

	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
)

// DocumentComposer applies patches to build the updated document.
type DocumentComposer struct{}

// New creates a new DocumentComposer.
func New() *DocumentComposer {
	return &DocumentComposer{}
}

// ApplyPatches applies patches, in order, to doc and returns the result.
// doc may be nil, in which case patches are applied starting from {}.
func (c *DocumentComposer) ApplyPatches(doc map[string]interface{}, patches []patch.Patch) (map[string]interface{}, error) {
	if doc == nil {
		doc = make(map[string]interface{})
	}

	var err error

	for _, p := range patches {
		doc, err = applyPatch(doc, p)
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func applyPatch(doc map[string]interface{}, p patch.Patch) (map[string]interface{}, error) {
	action, err := p.GetAction()
	if err != nil {
		return nil, err
	}

	switch action {
	case patch.Replace:
		return applyReplace(p)
	case patch.AddPublicKeys:
		return applyAddPublicKeys(doc, p)
	case patch.RemovePublicKeys:
		return applyRemovePublicKeys(doc, p)
	case patch.AddServices:
		return applyAddServices(doc, p)
	case patch.RemoveServices:
		return applyRemoveServices(doc, p)
	default:
		return nil, fmt.Errorf("%s: not supported", action)
	}
}

func applyReplace(p patch.Patch) (map[string]interface{}, error) {
	value, err := p.GetValue()
	if err != nil {
		return nil, err
	}

	asMap, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("replace patch document is not an object")
	}

	result := make(map[string]interface{})

	if pk, ok := asMap[patch.PublicKeysKey]; ok {
		result[patch.PublicKeysKey] = pk
	}

	if svc, ok := asMap["services"]; ok {
		result[patch.ServicesKey] = svc
	}

	return result, nil
}

func applyAddPublicKeys(doc map[string]interface{}, p patch.Patch) (map[string]interface{}, error) {
	value, err := p.GetValue()
	if err != nil {
		return nil, err
	}

	newKeys, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("add-public-keys value is not an array")
	}

	existing, _ := doc[patch.PublicKeysKey].([]interface{}) //nolint:errcheck

	merged := mergeByID(existing, newKeys)
	doc[patch.PublicKeysKey] = merged

	return doc, nil
}

func applyRemovePublicKeys(doc map[string]interface{}, p patch.Patch) (map[string]interface{}, error) {
	return removeByID(doc, p, patch.PublicKeysKey)
}

func applyAddServices(doc map[string]interface{}, p patch.Patch) (map[string]interface{}, error) {
	value, err := p.GetValue()
	if err != nil {
		return nil, err
	}

	newServices, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("add-services value is not an array")
	}

	existing, _ := doc[patch.ServicesKey].([]interface{}) //nolint:errcheck

	merged := mergeByID(existing, newServices)
	doc[patch.ServicesKey] = merged

	return doc, nil
}

func applyRemoveServices(doc map[string]interface{}, p patch.Patch) (map[string]interface{}, error) {
	return removeByID(doc, p, patch.ServicesKey)
}

func removeByID(doc map[string]interface{}, p patch.Patch, key string) (map[string]interface{}, error) {
	value, err := p.GetValue()
	if err != nil {
		return nil, err
	}

	ids, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s remove value is not an array", key)
	}

	removeSet := make(map[string]bool, len(ids))

	for _, id := range ids {
		s, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("%s id is not a string", key)
		}

		removeSet[s] = true
	}

	existing, _ := doc[key].([]interface{}) //nolint:errcheck

	kept := make([]interface{}, 0, len(existing))

	for _, entry := range existing {
		id := entryID(entry)
		if !removeSet[id] {
			kept = append(kept, entry)
		}
	}

	doc[key] = kept

	return doc, nil
}

// mergeByID appends newEntries to existing, replacing any existing
// entry that shares the new entry's id.
func mergeByID(existing, newEntries []interface{}) []interface{} {
	byID := make(map[string]int, len(existing))

	merged := make([]interface{}, len(existing))
	copy(merged, existing)

	for i, entry := range merged {
		byID[entryID(entry)] = i
	}

	for _, entry := range newEntries {
		id := entryID(entry)

		if idx, ok := byID[id]; ok {
			merged[idx] = entry

			continue
		}

		byID[id] = len(merged)
		merged = append(merged, entry)
	}

	return merged
}

func entryID(entry interface{}) string {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return ""
	}

	id, _ := m["id"].(string) //nolint:errcheck

	return id
}
