/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package patch

import "encoding/json"

func unmarshalDocument(doc string) (map[string]interface{}, error) {
	var parsed map[string]interface{}

	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, err
	}

	return parsed, nil
}
