/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package encoder wraps the Base64URL-without-padding encoding used
// throughout the wire format: suffix data, deltas, reveal values,
// commitments, and CAS URIs are all encoded this way.
package encoder

import "encoding/base64"

// EncodeToString encodes data as unpadded Base64URL.
func EncodeToString(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeString decodes an unpadded Base64URL string.
func DecodeString(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(data)
}
