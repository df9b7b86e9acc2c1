/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package patch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var asciiRegex = regexp.MustCompile("^[A-Za-z0-9_-]+$")

const (
	maxIDLength          = 50
	maxServiceTypeLength = 30
)

// KeyPurpose enumerates the closed set of verification-relationship
// purposes a public key may be used for.
type KeyPurpose string

const (
	PurposeAuthentication       KeyPurpose = "authentication"
	PurposeAssertionMethod      KeyPurpose = "assertionMethod"
	PurposeKeyAgreement         KeyPurpose = "keyAgreement"
	PurposeCapabilityInvocation KeyPurpose = "capabilityInvocation"
	PurposeCapabilityDelegation KeyPurpose = "capabilityDelegation"
)

var allowedPurposes = map[KeyPurpose]bool{
	PurposeAuthentication:       true,
	PurposeAssertionMethod:      true,
	PurposeKeyAgreement:         true,
	PurposeCapabilityInvocation: true,
	PurposeCapabilityDelegation: true,
}

// Validate checks a patch against the closed vocabulary of allowed
// actions and the per-action structural/content rules from spec §4.4.
func Validate(p Patch) error {
	action, err := p.GetAction()
	if err != nil {
		return err
	}

	switch action {
	case Replace:
		return validateReplace(p)
	case AddPublicKeys:
		return validateAddPublicKeys(p)
	case RemovePublicKeys:
		return validateRemovePublicKeys(p)
	case AddServices:
		return validateAddServices(p)
	case RemoveServices:
		return validateRemoveServices(p)
	default:
		return fmt.Errorf("patch action '%s' is not supported", action)
	}
}

func validateReplace(p Patch) error {
	value, err := p.GetValue()
	if err != nil {
		return err
	}

	doc, ok := value.(map[string]interface{})
	if !ok {
		return errors.New("invalid replace patch value: expected document object")
	}

	if pk, ok := doc["publicKeys"]; ok {
		if err := validatePublicKeys(toMapSlice(pk)); err != nil {
			return err
		}
	}

	if svc, ok := doc["services"]; ok {
		if err := validateServices(toMapSlice(svc)); err != nil {
			return err
		}
	}

	return nil
}

func validateAddPublicKeys(p Patch) error {
	value, err := p.GetValue()
	if err != nil {
		return err
	}

	arr, err := getRequiredArray(value)
	if err != nil {
		return fmt.Errorf("invalid add-public-keys value: %s", err.Error())
	}

	return validatePublicKeys(toMapSlice(arr))
}

func validateRemovePublicKeys(p Patch) error {
	value, err := p.GetValue()
	if err != nil {
		return err
	}

	arr, err := getRequiredArray(value)
	if err != nil {
		return fmt.Errorf("invalid remove-public-keys value: %s", err.Error())
	}

	return validateIDs(toStringSlice(arr))
}

func validateAddServices(p Patch) error {
	value, err := p.GetValue()
	if err != nil {
		return err
	}

	arr, err := getRequiredArray(value)
	if err != nil {
		return fmt.Errorf("invalid add-services value: %s", err.Error())
	}

	return validateServices(toMapSlice(arr))
}

func validateRemoveServices(p Patch) error {
	value, err := p.GetValue()
	if err != nil {
		return err
	}

	arr, err := getRequiredArray(value)
	if err != nil {
		return fmt.Errorf("invalid remove-services value: %s", err.Error())
	}

	return validateIDs(toStringSlice(arr))
}

func validatePublicKeys(pubKeys []map[string]interface{}) error {
	ids := make(map[string]bool)

	for _, pk := range pubKeys {
		id, _ := pk["id"].(string)

		if err := validateID(id); err != nil {
			return fmt.Errorf("public key: %s", err.Error())
		}

		if ids[id] {
			return fmt.Errorf("duplicate public key id: %s", id)
		}

		ids[id] = true

		if err := validateKeyPurposes(pk); err != nil {
			return err
		}

		if _, ok := pk["type"].(string); !ok {
			return fmt.Errorf("public key '%s' is missing type", id)
		}

		if _, hasJwk := pk["publicKeyJwk"]; !hasJwk {
			if _, hasBase58 := pk["publicKeyBase58"]; !hasBase58 {
				return fmt.Errorf("public key '%s': exactly one of publicKeyJwk or publicKeyBase58 required", id)
			}
		}
	}

	return nil
}

func validateKeyPurposes(pk map[string]interface{}) error {
	raw, exists := pk["purposes"]
	if !exists {
		return nil
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return errors.New("if 'purposes' key is specified, it must contain at least one purpose")
	}

	if len(arr) > len(allowedPurposes) {
		return fmt.Errorf("public key purpose exceeds maximum length: %d", len(allowedPurposes))
	}

	seen := make(map[string]bool)

	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			return errors.New("purpose must be a string")
		}

		if seen[s] {
			return fmt.Errorf("duplicate purpose: %s", s)
		}

		seen[s] = true

		if !allowedPurposes[KeyPurpose(s)] {
			return fmt.Errorf("invalid purpose: %s", s)
		}
	}

	return nil
}

func validateServices(services []map[string]interface{}) error {
	ids := make(map[string]bool)

	for _, svc := range services {
		id, _ := svc["id"].(string)
		if err := validateServiceID(id); err != nil {
			return err
		}

		if ids[id] {
			return fmt.Errorf("duplicate service id: %s", id)
		}

		ids[id] = true

		svcType, _ := svc["type"].(string)
		if err := validateServiceType(svcType); err != nil {
			return err
		}

		if err := validateServiceEndpoint(svc["serviceEndpoint"]); err != nil {
			return err
		}
	}

	return nil
}

func validateServiceID(id string) error {
	if id == "" {
		return errors.New("service id is missing")
	}

	if err := validateID(id); err != nil {
		return fmt.Errorf("service: %s", err.Error())
	}

	return nil
}

func validateServiceType(serviceType string) error {
	if serviceType == "" {
		return errors.New("service type is missing")
	}

	if len(serviceType) > maxServiceTypeLength {
		return fmt.Errorf("service type exceeds maximum length: %d", maxServiceTypeLength)
	}

	return nil
}

func validateServiceEndpoint(endpoint interface{}) error {
	if endpoint == nil {
		return errors.New("service endpoint is missing")
	}

	switch v := endpoint.(type) {
	case string:
		return validateURI(v)
	case map[string]interface{}:
		// a non-array object endpoint is allowed as-is (e.g. DIDComm service
		// block); no URI validation applies.
		return nil
	default:
		return errors.New("service endpoint must be a URI string or a non-array object")
	}
}

func validateURI(uri string) error {
	if uri == "" {
		return errors.New("service endpoint URI is empty")
	}

	if _, err := url.ParseRequestURI(uri); err != nil {
		return fmt.Errorf("service endpoint '%s' is not a valid URI: %s", uri, err.Error())
	}

	return nil
}

func validateID(id string) error {
	if id == "" {
		return errors.New("id is missing")
	}

	if len(id) > maxIDLength {
		return fmt.Errorf("id exceeds maximum length: %d", maxIDLength)
	}

	if !asciiRegex.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func validateIDs(ids []string) error {
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return err
		}
	}

	return nil
}

func getRequiredArray(entry interface{}) ([]interface{}, error) {
	arr, ok := entry.([]interface{})
	if !ok {
		return nil, errors.New("expected array of interfaces")
	}

	if len(arr) == 0 {
		return nil, errors.New("required array is empty")
	}

	return arr, nil
}

func toMapSlice(raw interface{}) []map[string]interface{} {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	out := make([]map[string]interface{}, 0, len(arr))

	for _, v := range arr {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}

	return out
}

func toStringSlice(raw []interface{}) []string {
	out := make([]string, 0, len(raw))

	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
