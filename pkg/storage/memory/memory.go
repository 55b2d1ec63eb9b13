package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

// Memory is an in-process document store. Documents are copied on the way
// in and out so callers never alias the stored state.
type Memory struct {
	mutex sync.RWMutex
	docs  map[string]*models.Document
	order []string
}

var _ model.DocumentStore = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		docs: map[string]*models.Document{},
	}
}

func (m *Memory) Create(doc *models.Document) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.docs[doc.Id]; ok {
		return fmt.Errorf("document %s already exists", doc.Id)
	}
	m.docs[doc.Id] = clone(doc)
	m.order = append(m.order, doc.Id)
	return nil
}

func (m *Memory) Get(id string) (*models.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return clone(doc), nil
}

func (m *Memory) Update(doc *models.Document) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.docs[doc.Id]; !ok {
		return model.ErrNotFound
	}
	m.docs[doc.Id] = clone(doc)
	return nil
}

func (m *Memory) List() ([]models.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]models.Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *clone(m.docs[id]))
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

func clone(doc *models.Document) *models.Document {
	b, err := json.Marshal(doc)
	if err != nil {
		// Documents are plain data; marshalling them cannot fail.
		panic(err)
	}
	var out models.Document
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}
