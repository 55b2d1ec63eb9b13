package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

func TestComputeStatus(t *testing.T) {
	doc := &models.Document{
		Signers: []models.Signer{
			{Id: "a"},
			{Id: "b"},
		},
	}
	assert.Equal(t, models.StatusPending, doc.ComputeStatus())

	doc.Signers[0].Signed = true
	assert.Equal(t, models.StatusPartiallySigned, doc.ComputeStatus())

	doc.Signers[1].Signed = true
	assert.Equal(t, models.StatusSigned, doc.ComputeStatus())
}

func TestComputeStatusNoSigners(t *testing.T) {
	doc := &models.Document{}
	assert.Equal(t, models.StatusPending, doc.ComputeStatus())
}

func TestSignerById(t *testing.T) {
	doc := &models.Document{
		Signers: []models.Signer{{Id: "a"}, {Id: "b"}},
	}
	require.NotNil(t, doc.SignerById("b"))

	// The returned pointer aliases the document so callers can mutate it.
	doc.SignerById("b").Signed = true
	assert.True(t, doc.Signers[1].Signed)

	assert.Nil(t, doc.SignerById("c"))
}

func TestParseEnumsAcceptStringsAndIntegers(t *testing.T) {
	k, err := models.ParseKind("contract")
	require.Nil(t, err)
	assert.Equal(t, models.KindContract, k)

	k, err = models.ParseKind(1)
	require.Nil(t, err)
	assert.Equal(t, models.KindContract, k)

	// JSON numbers arrive as float64.
	k, err = models.ParseKind(float64(0))
	require.Nil(t, err)
	assert.Equal(t, models.KindReceipt, k)

	_, err = models.ParseKind("invoice")
	assert.NotNil(t, err)
	_, err = models.ParseKind(7)
	assert.NotNil(t, err)
	_, err = models.ParseKind(0.5)
	assert.NotNil(t, err)

	m, err := models.ParseSigningMode("required_login")
	require.Nil(t, err)
	assert.Equal(t, models.SigningModeRequiredLogin, m)

	st, err := models.ParseStatus("partially_signed")
	require.Nil(t, err)
	assert.Equal(t, models.StatusPartiallySigned, st)
}

func TestEnumJSONRoundTrip(t *testing.T) {
	doc := models.Document{
		Kind:        models.KindContract,
		SigningMode: models.SigningModeRequiredLogin,
		Status:      models.StatusPartiallySigned,
	}
	b, err := json.Marshal(doc)
	require.Nil(t, err)
	assert.Contains(t, string(b), `"kind":"contract"`)
	assert.Contains(t, string(b), `"signingMode":"required_login"`)
	assert.Contains(t, string(b), `"status":"partially_signed"`)

	var back models.Document
	require.Nil(t, json.Unmarshal(b, &back))
	assert.Equal(t, doc.Kind, back.Kind)
	assert.Equal(t, doc.SigningMode, back.SigningMode)
	assert.Equal(t, doc.Status, back.Status)
}

func TestEnumJSONAcceptsIntegers(t *testing.T) {
	var doc models.Document
	err := json.Unmarshal([]byte(`{"kind":1,"signingMode":0,"status":2}`), &doc)
	require.Nil(t, err)
	assert.Equal(t, models.KindContract, doc.Kind)
	assert.Equal(t, models.SigningModePublic, doc.SigningMode)
	assert.Equal(t, models.StatusSigned, doc.Status)

	err = json.Unmarshal([]byte(`{"kind":"postcard"}`), &doc)
	assert.NotNil(t, err)
}

func TestSignatureKindJSON(t *testing.T) {
	var sig models.SignatureData
	require.Nil(t, json.Unmarshal([]byte(`{"kind":"typed","payload":"x"}`), &sig))
	assert.Equal(t, models.SignatureTyped, sig.Kind)

	require.Nil(t, json.Unmarshal([]byte(`{"kind":0,"payload":"x"}`), &sig))
	assert.Equal(t, models.SignatureDraw, sig.Kind)

	b, err := json.Marshal(models.SignatureData{Kind: models.SignatureDraw, Payload: "[]"})
	require.Nil(t, err)
	assert.Contains(t, string(b), `"kind":"draw"`)
}

func TestSignatureDataValidate(t *testing.T) {
	var sig *models.SignatureData
	assert.NotNil(t, sig.Validate())
	assert.NotNil(t, (&models.SignatureData{}).Validate())
	assert.Nil(t, (&models.SignatureData{Payload: "x"}).Validate())
}
