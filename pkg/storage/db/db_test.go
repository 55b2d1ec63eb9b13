package db_test

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/db"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

func getStore(t *testing.T) model.DocumentStore {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set, skipping test")
	}
	s, err := db.New(dsn)
	if err != nil {
		t.Fatalf("unable to create db storage: %v", err)
	}
	return s
}

func TestDbRoundTrip(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	doc := &models.Document{
		Id:    uuid.New().String(),
		Kind:  models.KindContract,
		Title: "Hợp đồng thuê nhà",
		Metadata: models.Metadata{
			Location: "Hà Nội",
		},
		Signers: []models.Signer{
			{Id: "sender", Role: "Bên A", Name: "Nguyễn Văn A"},
			{Id: "receiver", Role: "Bên B", Name: "Trần Thị B"},
		},
	}
	require.Nil(t, s.Create(doc))

	got, err := s.Get(doc.Id)
	require.Nil(t, err)
	assert.Equal(t, doc.Title, got.Title)
	require.Len(t, got.Signers, 2)
	assert.Equal(t, "Bên A", got.Signers[0].Role)
	assert.Equal(t, "Hà Nội", got.Metadata.Location)

	got.Status = models.StatusPartiallySigned
	got.Signers[0].Signed = true
	require.Nil(t, s.Update(got))

	again, err := s.Get(doc.Id)
	require.Nil(t, err)
	assert.Equal(t, models.StatusPartiallySigned, again.Status)
	assert.True(t, again.Signers[0].Signed)

	docs, err := s.List()
	require.Nil(t, err)
	assert.NotEmpty(t, docs)
}

func TestDbNotFound(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	_, err := s.Get(uuid.New().String())
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.Update(&models.Document{Id: uuid.New().String()})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
