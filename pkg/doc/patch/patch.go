/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package patch implements the closed set of document patches a
// Sidetree delta may carry: replace, add-public-keys,
// remove-public-keys, add-services, remove-services.
package patch

import (
	"fmt"
)

// Action defines the patch action tag.
type Action string

const (
	// Replace replaces the entire document.
	Replace Action = "replace"

	// AddPublicKeys adds public keys to the document.
	AddPublicKeys Action = "add-public-keys"

	// RemovePublicKeys removes public keys from the document by id.
	RemovePublicKeys Action = "remove-public-keys"

	// AddServices adds services to the document.
	AddServices Action = "add-services"

	// RemoveServices removes services from the document by id.
	RemoveServices Action = "remove-services"

	// ActionKey is the JSON key carrying the patch action.
	ActionKey = "action"

	// DocumentKey is the JSON key carrying the Replace patch's document value.
	DocumentKey = "document"

	// PublicKeysKey is the JSON key carrying the AddPublicKeys value.
	PublicKeysKey = "publicKeys"

	// IDsKey is the JSON key carrying the Remove* value.
	IDsKey = "ids"

	// ServicesKey is the JSON key carrying the AddServices value.
	ServicesKey = "services"
)

// Patch is a single document patch: a closed-vocabulary action plus an
// action-specific value. It is represented as a generic map so it
// round-trips through JSON without losing unknown-but-allowed shape,
// mirroring how the teacher's sidetree-core patch type works.
type Patch map[string]interface{}

// GetAction returns the patch's action.
func (p Patch) GetAction() (Action, error) {
	entry, ok := p[ActionKey]
	if !ok {
		return "", fmt.Errorf("patch is missing '%s'", ActionKey)
	}

	action, ok := entry.(string)
	if !ok {
		return "", fmt.Errorf("patch '%s' is not a string", ActionKey)
	}

	return Action(action), nil
}

// GetValue returns the action-specific value for this patch (the
// document, publicKeys, ids, or services member).
func (p Patch) GetValue() (interface{}, error) {
	action, err := p.GetAction()
	if err != nil {
		return nil, err
	}

	key, err := valueKey(action)
	if err != nil {
		return nil, err
	}

	value, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("patch is missing '%s'", key)
	}

	return value, nil
}

func valueKey(action Action) (string, error) {
	switch action {
	case Replace:
		return DocumentKey, nil
	case AddPublicKeys:
		return PublicKeysKey, nil
	case RemovePublicKeys:
		return IDsKey, nil
	case AddServices:
		return ServicesKey, nil
	case RemoveServices:
		return IDsKey, nil
	default:
		return "", fmt.Errorf("action '%s' is not supported", action)
	}
}

// NewReplacePatch creates a new "replace" patch from an opaque document.
func NewReplacePatch(doc map[string]interface{}) Patch {
	return Patch{
		ActionKey:   string(Replace),
		DocumentKey: doc,
	}
}

// NewAddPublicKeysPatch creates a new "add-public-keys" patch.
func NewAddPublicKeysPatch(publicKeys []interface{}) Patch {
	return Patch{
		ActionKey:     string(AddPublicKeys),
		PublicKeysKey: publicKeys,
	}
}

// NewRemovePublicKeysPatch creates a new "remove-public-keys" patch.
func NewRemovePublicKeysPatch(ids []string) Patch {
	return Patch{
		ActionKey: string(RemovePublicKeys),
		IDsKey:    toInterfaceSlice(ids),
	}
}

// NewAddServicesPatch creates a new "add-services" patch.
func NewAddServicesPatch(services []interface{}) Patch {
	return Patch{
		ActionKey:   string(AddServices),
		ServicesKey: services,
	}
}

// NewRemoveServicesPatch creates a new "remove-services" patch.
func NewRemoveServicesPatch(ids []string) Patch {
	return Patch{
		ActionKey: string(RemoveServices),
		IDsKey:    toInterfaceSlice(ids),
	}
}

// PatchesFromDocument builds a single "replace" patch set from an
// opaque document string, used when a Create/Recover request is built
// from a full document rather than a patch list.
func PatchesFromDocument(doc string) ([]Patch, error) {
	parsed, err := unmarshalDocument(doc)
	if err != nil {
		return nil, err
	}

	return []Patch{NewReplacePatch(parsed)}, nil
}

func toInterfaceSlice(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}

	return out
}
