/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AnchorData is the parsed form of a transaction's anchorString:
// "<coreIndexFileUri>.<operationCount>".
type AnchorData struct {
	CoreIndexFileURI   string
	NumberOfOperations int
}

// ParseAnchorData parses anchorString.
func ParseAnchorData(anchorString string) (*AnchorData, error) {
	parts := strings.Split(anchorString, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid anchor string: %s", anchorString)
	}

	num, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid anchor string operation count: %s", err.Error())
	}

	return &AnchorData{CoreIndexFileURI: parts[0], NumberOfOperations: num}, nil
}

// String formats AnchorData back into the wire anchorString.
func (a *AnchorData) String() string {
	return fmt.Sprintf("%s.%d", a.CoreIndexFileURI, a.NumberOfOperations)
}

// OperationCount returns the operation count encoded in anchorString,
// the quantity the TransactionSelector's per-block caps are measured
// against (spec §4.6, "AnchoredDataSerializer").
func OperationCount(anchorString string) (int, error) {
	data, err := ParseAnchorData(anchorString)
	if err != nil {
		return 0, err
	}

	return data.NumberOfOperations, nil
}
