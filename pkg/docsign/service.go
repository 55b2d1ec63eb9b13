// Package docsign owns the document signing state machine: it enforces who
// may sign when, applies signatures atomically and keeps the derived
// document status consistent with the signers.
package docsign

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/CuongBC195/e-contract-backend/pkg/hashverify"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/signature"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "docsign")

type Service struct {
	store model.DocumentStore
	locks *keyedMutex
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store model.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new document. Kind, signing mode and the signer
// list are fixed at creation.
type CreateParams struct {
	Kind        models.DocumentKind
	Title       string
	Content     string
	Metadata    models.Metadata
	SigningMode models.SigningMode
	Signers     []models.Signer
	CreatedBy   string
}

func (s *Service) Create(params CreateParams) (*models.Document, error) {
	if len(params.Signers) == 0 {
		return nil, fmt.Errorf("a document needs at least one signer")
	}

	doc := &models.Document{
		Id:          uuid.New().String(),
		Kind:        params.Kind,
		Title:       params.Title,
		Content:     params.Content,
		Metadata:    params.Metadata,
		SigningMode: params.SigningMode,
		Status:      models.StatusPending,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   s.now(),
	}
	for _, signer := range params.Signers {
		if signer.Id == "" {
			signer.Id = uuid.New().String()
		}
		// Signatures never arrive through creation.
		signer.Signed = false
		signer.SignedAt = nil
		signer.SignatureData = nil
		signer.ContentHash = ""
		doc.Signers = append(doc.Signers, signer)
	}

	if err := s.store.Create(doc); err != nil {
		return nil, err
	}
	log.Debugf("created document %s (%s, %d signers)", doc.Id, doc.Kind, len(doc.Signers))
	return doc, nil
}

// Get returns the document together with its read-time integrity check.
// The first time anyone other than the creator opens the document the view
// timestamp is stamped.
func (s *Service) Get(id string, viewerId string) (*models.Document, hashverify.Result, error) {
	doc, err := s.store.Get(id)
	if err != nil {
		return nil, hashverify.Result{}, err
	}

	if doc.ViewedAt == nil && viewerId != "" && viewerId != doc.CreatedBy {
		doc = s.stampFirstView(id, doc)
	}

	return doc, hashverify.Verify(doc), nil
}

// stampFirstView records the first view under the document lock,
// re-reading first so the whole-document write can never clobber a
// signature submitted after the caller's unlocked read.
func (s *Service) stampFirstView(id string, fallback *models.Document) *models.Document {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	doc, err := s.store.Get(id)
	if err != nil {
		log.Warnf("unable to record first view of %s: %v", id, err)
		return fallback
	}
	if doc.ViewedAt != nil {
		return doc
	}

	now := s.now()
	doc.ViewedAt = &now
	if err := s.store.Update(doc); err != nil {
		// A lost view timestamp must not fail the read.
		log.Warnf("unable to record first view of %s: %v", id, err)
	}
	return doc
}

func (s *Service) List() ([]models.Document, error) {
	return s.store.List()
}

// EditParams carries the non-signature fields that may change while a
// document is still pending.
type EditParams struct {
	Title    *string
	Content  *string
	Metadata *models.Metadata
}

// Edit applies non-signature edits. Once any party has signed, the content
// is frozen so the stored fingerprints keep their meaning.
func (s *Service) Edit(id string, params EditParams) (*models.Document, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	doc, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusPending {
		return nil, ErrDocumentLocked
	}

	if params.Title != nil {
		doc.Title = *params.Title
	}
	if params.Content != nil {
		doc.Content = *params.Content
	}
	if params.Metadata != nil {
		doc.Metadata = *params.Metadata
	}

	if err := s.store.Update(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type SubmitRequest struct {
	DocumentId    string
	SignerId      string
	Signature     *models.SignatureData
	Authenticated bool
}

type SubmitResult struct {
	Document *models.Document
	// AlreadySigned reports that the signer had signed before this call and
	// nothing changed. It makes client retries safe.
	AlreadySigned bool
}

// SubmitSignature applies one signature as a single atomic unit. Concurrent
// submissions for the same document serialize on a per-document mutex;
// duplicates collapse to one effective write.
func (s *Service) SubmitSignature(req SubmitRequest) (*SubmitResult, error) {
	s.locks.Lock(req.DocumentId)
	defer s.locks.Unlock(req.DocumentId)

	doc, err := s.store.Get(req.DocumentId)
	if err != nil {
		return nil, err
	}

	if doc.SigningMode == models.SigningModeRequiredLogin && !req.Authenticated {
		return nil, ErrSigningModeViolation
	}

	signer := doc.SignerById(req.SignerId)
	if signer == nil {
		return nil, ErrUnknownSigner
	}

	if signer.Signed {
		log.Debugf("signer %s of %s already signed, idempotent no-op", req.SignerId, doc.Id)
		return &SubmitResult{Document: doc, AlreadySigned: true}, nil
	}

	normalized, err := signature.Normalize(req.Signature)
	if err != nil {
		if errors.Is(err, signature.ErrEmptyInput) {
			return nil, ErrEmptySignature
		}
		return nil, fmt.Errorf("%w: %v", ErrEmptySignature, err)
	}

	fingerprint, err := hashverify.Fingerprint(doc)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	now := s.now()
	signer.Signed = true
	signer.SignedAt = &now
	signer.SignatureData = normalized
	signer.ContentHash = fingerprint

	doc.Status = doc.ComputeStatus()
	if doc.Status == models.StatusSigned && doc.SignedAt == nil {
		doc.SignedAt = &now
	}

	if err := s.store.Update(doc); err != nil {
		return nil, err
	}

	log.Infof("document %s signed by %s (%s), status now %s", doc.Id, signer.Name, signer.Id, doc.Status)
	return &SubmitResult{Document: doc}, nil
}
