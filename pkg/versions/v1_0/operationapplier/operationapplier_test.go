/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operationapplier

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/operation"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/doccomposer"
	"github.com/trustbloc/sidetree-svc-go/pkg/doc/patch"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/canonicalizer"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/hashing"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/jws"
	"github.com/trustbloc/sidetree-svc-go/pkg/versions/v1_0/model"
)

const multihashCode = 18

func testApplier() *Applier {
	return New(protocol.Protocol{MultihashAlgorithms: []uint{multihashCode}}, doccomposer.New())
}

func genKeyPair(t *testing.T) (*ecdsa.PrivateKey, *jws.JWK) {
	t.Helper()

	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	priv := (*ecdsa.PrivateKey)(key)

	return priv, jws.PublicKeyJWK(&priv.PublicKey)
}

func sign(t *testing.T, priv *ecdsa.PrivateKey, payload interface{}) string {
	t.Helper()

	raw, err := canonicalizer.MarshalCanonical(payload)
	require.NoError(t, err)

	compact, err := signWith(priv, raw)
	require.NoError(t, err)

	return compact
}

func signWith(priv *ecdsa.PrivateKey, payload []byte) (string, error) {
	headers := jws.Headers{jws.HeaderAlgorithm: jws.AlgorithmES256K}

	signingInput, err := jws.SigningInput(headers, payload)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(signingInput)

	btcecPriv := (*btcec.PrivateKey)(priv)

	sig, err := btcecPriv.Sign(digest[:])
	if err != nil {
		return "", err
	}

	r := leftPad32(sig.R.Bytes())
	s := leftPad32(sig.S.Bytes())

	return jws.CompactSerialize(signingInput, append(r, s...)), nil //nolint:gocritic
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}

	padded := make([]byte, 32-len(b))

	return append(padded, b...)
}

func hashOf(t *testing.T, v interface{}) string {
	t.Helper()

	h, err := hashing.CalculateModelMultihash(v, multihashCode)
	require.NoError(t, err)

	return h
}

func replaceDelta(t *testing.T, updateCommitment string) *operation.DeltaModel {
	t.Helper()

	return &operation.DeltaModel{
		UpdateCommitment: updateCommitment,
		Patches:          []patch.Patch{patch.NewReplacePatch(map[string]interface{}{"k": "v"})},
	}
}

func TestApplyCreate(t *testing.T) {
	a := testApplier()

	_, recoveryKeyPub := genKeyPair(t)
	_, updateKeyPub := genKeyPair(t)

	delta := replaceDelta(t, hashOf(t, updateKeyPub))
	deltaHash := hashOf(t, delta)

	op := &operation.AnchoredOperation{
		Type: operation.TypeCreate,
		Delta: delta,
		SuffixData: &operation.SuffixDataModel{
			DeltaHash:          deltaHash,
			RecoveryCommitment: hashOf(t, recoveryKeyPub),
		},
		TransactionNumber: 1,
	}

	t.Run("succeeds from nil state", func(t *testing.T) {
		state, err := a.Apply(op, nil)
		require.NoError(t, err)
		require.Equal(t, "v", state.Doc["k"])
		require.Equal(t, op.SuffixData.RecoveryCommitment, state.NextRecoveryCommitment)
		require.Equal(t, delta.UpdateCommitment, state.NextUpdateCommitment)
	})

	t.Run("rejects a second create", func(t *testing.T) {
		_, err := a.Apply(op, &State{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "only allowed once")
	})

	t.Run("rejects a delta/hash mismatch", func(t *testing.T) {
		bad := *op
		bad.SuffixData = &operation.SuffixDataModel{DeltaHash: "wrong", RecoveryCommitment: op.SuffixData.RecoveryCommitment}

		_, err := a.Apply(&bad, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "delta doesn't match delta hash")
	})
}

func TestApplyUpdate(t *testing.T) {
	a := testApplier()

	updateKeyPriv, updateKeyPub := genKeyPair(t)
	_, nextUpdateKeyPub := genKeyPair(t)
	otherPriv, _ := genKeyPair(t)

	state := &State{Doc: map[string]interface{}{"k": "old"}, NextUpdateCommitment: hashOf(t, updateKeyPub)}

	delta := replaceDelta(t, hashOf(t, nextUpdateKeyPub))

	signedData := &model.UpdateSignedDataModel{UpdateKey: updateKeyPub, DeltaHash: hashOf(t, delta)}

	t.Run("requires existing state", func(t *testing.T) {
		op := &operation.AnchoredOperation{Type: operation.TypeUpdate, Delta: delta, SignedData: sign(t, updateKeyPriv, signedData)}

		_, err := a.Apply(op, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires an existing document")
	})

	t.Run("rejects a key that doesn't match the commitment", func(t *testing.T) {
		wrongSignedData := &model.UpdateSignedDataModel{UpdateKey: nextUpdateKeyPub, DeltaHash: hashOf(t, delta)}
		op := &operation.AnchoredOperation{Type: operation.TypeUpdate, Delta: delta, SignedData: sign(t, otherPriv, wrongSignedData)}

		_, err := a.Apply(op, state)
		require.Error(t, err)
		require.Contains(t, err.Error(), "doesn't match next update commitment")
	})

	t.Run("rejects a signature from the wrong key", func(t *testing.T) {
		op := &operation.AnchoredOperation{Type: operation.TypeUpdate, Delta: delta, SignedData: sign(t, otherPriv, signedData)}

		_, err := a.Apply(op, state)
		require.Error(t, err)
		require.Contains(t, err.Error(), "signature verification failed")
	})

	t.Run("applies patches and advances the update commitment", func(t *testing.T) {
		op := &operation.AnchoredOperation{
			Type: operation.TypeUpdate, Delta: delta,
			SignedData: sign(t, updateKeyPriv, signedData), TransactionNumber: 2,
		}

		next, err := a.Apply(op, state)
		require.NoError(t, err)
		require.Equal(t, "v", next.Doc["k"])
		require.Equal(t, delta.UpdateCommitment, next.NextUpdateCommitment)
		require.Equal(t, state.NextRecoveryCommitment, next.NextRecoveryCommitment)
		require.Equal(t, uint64(2), next.LastOperationTxnNumber)
	})
}

func TestApplyRecover(t *testing.T) {
	a := testApplier()

	recoveryKeyPriv, recoveryKeyPub := genKeyPair(t)
	_, nextRecoveryKeyPub := genKeyPair(t)
	_, nextUpdateKeyPub := genKeyPair(t)

	state := &State{Doc: map[string]interface{}{"k": "pre-recovery"}, NextRecoveryCommitment: hashOf(t, recoveryKeyPub)}

	delta := replaceDelta(t, hashOf(t, nextUpdateKeyPub))
	signedData := &model.RecoverSignedDataModel{
		DeltaHash: hashOf(t, delta), RecoveryKey: recoveryKeyPub, RecoveryCommitment: hashOf(t, nextRecoveryKeyPub),
	}

	t.Run("requires existing state", func(t *testing.T) {
		op := &operation.AnchoredOperation{Type: operation.TypeRecover, Delta: delta, SignedData: sign(t, recoveryKeyPriv, signedData)}

		_, err := a.Apply(op, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires an existing document")
	})

	t.Run("replaces the document and rotates both commitments", func(t *testing.T) {
		op := &operation.AnchoredOperation{Type: operation.TypeRecover, Delta: delta, SignedData: sign(t, recoveryKeyPriv, signedData)}

		next, err := a.Apply(op, state)
		require.NoError(t, err)
		require.Equal(t, "v", next.Doc["k"])
		require.NotContains(t, next.Doc, "pre-recovery")
		require.Equal(t, signedData.RecoveryCommitment, next.NextRecoveryCommitment)
		require.Equal(t, delta.UpdateCommitment, next.NextUpdateCommitment)
	})
}

func TestApplyDeactivate(t *testing.T) {
	a := testApplier()

	recoveryKeyPriv, recoveryKeyPub := genKeyPair(t)

	const suffix = "abc123"

	state := &State{Doc: map[string]interface{}{"k": "v"}, NextRecoveryCommitment: hashOf(t, recoveryKeyPub)}

	t.Run("rejects a mismatched did suffix", func(t *testing.T) {
		signedData := &model.DeactivateSignedDataModel{DidSuffix: "someone-else", RecoveryKey: recoveryKeyPub}
		op := &operation.AnchoredOperation{Type: operation.TypeDeactivate, UniqueSuffix: suffix, SignedData: sign(t, recoveryKeyPriv, signedData)}

		_, err := a.Apply(op, state)
		require.Error(t, err)
		require.Contains(t, err.Error(), "doesn't match operation")
	})

	t.Run("tombstones the state", func(t *testing.T) {
		signedData := &model.DeactivateSignedDataModel{DidSuffix: suffix, RecoveryKey: recoveryKeyPub}
		op := &operation.AnchoredOperation{Type: operation.TypeDeactivate, UniqueSuffix: suffix, SignedData: sign(t, recoveryKeyPriv, signedData)}

		next, err := a.Apply(op, state)
		require.NoError(t, err)
		require.Nil(t, next.Doc)
		require.Empty(t, next.NextRecoveryCommitment)
		require.Empty(t, next.NextUpdateCommitment)
	})
}
