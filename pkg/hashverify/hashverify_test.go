package hashverify_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuongBC195/e-contract-backend/pkg/hashverify"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

func testDocument() *models.Document {
	return &models.Document{
		Id:      "doc-1",
		Title:   "Biên nhận",
		Content: "Nội dung biên nhận",
		Metadata: models.Metadata{
			Location: "Hà Nội",
		},
		Signers: []models.Signer{
			{Id: "sender", Name: "Nguyễn Văn A"},
			{Id: "receiver", Name: "Trần Thị B"},
		},
	}
}

func TestFingerprintIsStable(t *testing.T) {
	doc := testDocument()
	a, err := hashverify.Fingerprint(doc)
	require.Nil(t, err)
	b, err := hashverify.Fingerprint(doc)
	require.Nil(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "sha256:"))
	assert.Len(t, a, len("sha256:")+64)
}

func TestFingerprintIgnoresNonSignableFields(t *testing.T) {
	doc := testDocument()
	a, err := hashverify.Fingerprint(doc)
	require.Nil(t, err)

	doc.Signers[0].Signed = true
	doc.Status = models.StatusPartiallySigned
	b, err := hashverify.Fingerprint(doc)
	require.Nil(t, err)
	assert.Equal(t, a, b)
}

func TestVerifyDetectsTampering(t *testing.T) {
	doc := testDocument()
	fp, err := hashverify.Fingerprint(doc)
	require.Nil(t, err)
	doc.Signers[0].Signed = true
	doc.Signers[0].ContentHash = fp

	res := hashverify.Verify(doc)
	assert.True(t, res.IsValid)

	doc.Content = "Nội dung đã bị sửa"
	res = hashverify.Verify(doc)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"sender"}, res.MismatchedSignatures)
	assert.NotEmpty(t, res.Message)
}

func TestVerifySkipsUnsignedSigners(t *testing.T) {
	doc := testDocument()
	res := hashverify.Verify(doc)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.MismatchedSignatures)
}
