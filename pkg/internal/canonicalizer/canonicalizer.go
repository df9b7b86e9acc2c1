/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package canonicalizer produces a deterministic JSON encoding (object
// keys sorted, no insignificant whitespace) suitable for hashing. It
// stands in for the JCS (RFC 8785) canonicalizer the teacher imports
// from doc/json/canonicalizer; see DESIGN.md for why this package uses
// the standard library instead of a third-party JCS implementation.
package canonicalizer

import (
	"bytes"
	"encoding/json"
	"sort"
)

// MarshalCanonical marshals v to JSON with object keys sorted at every
// level, matching the deterministic-hashing property Sidetree needs
// from its commitment/delta hashing: canonicalize(x) always produces
// the same bytes for the same logical value.
func MarshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic interface{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	if err := encode(&buf, generic); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		return encodeObject(buf, val)
	case []interface{}:
		return encodeArray(buf, val)
	default:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}

		buf.Write(enc)

		return nil
	}
}

func encodeObject(buf *bytes.Buffer, obj map[string]interface{}) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return err
		}

		buf.Write(keyBytes)
		buf.WriteByte(':')

		if err := encode(buf, obj[k]); err != nil {
			return err
		}
	}

	buf.WriteByte('}')

	return nil
}

func encodeArray(buf *bytes.Buffer, arr []interface{}) error {
	buf.WriteByte('[')

	for i, v := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := encode(buf, v); err != nil {
			return err
		}
	}

	buf.WriteByte(']')

	return nil
}
