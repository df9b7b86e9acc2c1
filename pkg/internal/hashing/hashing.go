/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hashing computes and validates the multihash commitments and
// reveal values used throughout the operation model: didUniqueSuffix,
// delta hashes, update/recovery commitments are all
// base64url(multihash(canonicalize(value))).
package hashing

import (
	"fmt"

	"github.com/multiformats/go-multihash"

	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/encoder"
)

// CalculateModelMultihash canonicalizes model and returns its
// base64url-encoded multihash using the given multihash code.
func CalculateModelMultihash(model interface{}, multihashCode uint) (string, error) {
	canonical, err := canonicalizer.MarshalCanonical(model)
	if err != nil {
		return "", fmt.Errorf("canonicalize model: %s", err.Error())
	}

	return CalculateHash(canonical, multihashCode)
}

// CalculateHash returns the base64url-encoded multihash of data.
func CalculateHash(data []byte, multihashCode uint) (string, error) {
	mh, err := multihash.Sum(data, int(multihashCode), -1)
	if err != nil {
		return "", fmt.Errorf("calculate multihash: %s", err.Error())
	}

	return encoder.EncodeToString(mh), nil
}

// IsValidModelMultihash checks that the multihash of canonicalize(model)
// equals the decoded encodedMultihash.
func IsValidModelMultihash(model interface{}, encodedMultihash string) error {
	canonical, err := canonicalizer.MarshalCanonical(model)
	if err != nil {
		return fmt.Errorf("canonicalize model: %s", err.Error())
	}

	return IsValidHash(canonical, encodedMultihash)
}

// IsValidHash checks that the multihash of data equals the decoded
// encodedMultihash (same algorithm as encodedMultihash carries).
func IsValidHash(data []byte, encodedMultihash string) error {
	code, err := GetMultihashCode(encodedMultihash)
	if err != nil {
		return err
	}

	computed, err := CalculateHash(data, code)
	if err != nil {
		return err
	}

	if computed != encodedMultihash {
		return fmt.Errorf("supplied hash doesn't match original content")
	}

	return nil
}

// GetMultihashCode decodes encodedMultihash and returns its multihash
// code (the hash algorithm identifier).
func GetMultihashCode(encodedMultihash string) (uint, error) {
	decoded, err := encoder.DecodeString(encodedMultihash)
	if err != nil {
		return 0, fmt.Errorf("decode multihash: %s", err.Error())
	}

	info, err := multihash.Decode(decoded)
	if err != nil {
		return 0, fmt.Errorf("parse multihash: %s", err.Error())
	}

	return uint(info.Code), nil
}

// IsComputedUsingMultihashAlgorithms checks that encodedMultihash was
// computed with one of the allowed codes.
func IsComputedUsingMultihashAlgorithms(encodedMultihash string, allowedCodes []uint) bool {
	code, err := GetMultihashCode(encodedMultihash)
	if err != nil {
		return false
	}

	for _, allowed := range allowedCodes {
		if code == allowed {
			return true
		}
	}

	return false
}

// CalculateSuffix returns the base64url multihash didUniqueSuffix
// derived from a Create operation's suffix data.
func CalculateSuffix(suffixData interface{}, multihashCode uint) (string, error) {
	return CalculateModelMultihash(suffixData, multihashCode)
}
