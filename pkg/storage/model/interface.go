package model

import (
	"errors"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

// ErrNotFound is returned when a document id is unknown to the store.
var ErrNotFound = errors.New("document not found")

type Creator interface {
	Create(doc *models.Document) error
}

type Retriever interface {
	Get(id string) (*models.Document, error)
	List() ([]models.Document, error)
}

type Updater interface {
	Update(doc *models.Document) error
}

// DocumentStore is the only shared mutable resource of the signing core.
// It is opened once at process start and closed at shutdown; callers are
// handed the open store instead of looking one up globally.
type DocumentStore interface {
	Creator
	Retriever
	Updater
	Close() error
}
