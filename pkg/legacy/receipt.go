// Package legacy maps between the flat receipt shape of the first-generation
// schema and the unified document model. The mapping is purely structural;
// nothing in here mutates state or consults a store.
package legacy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

// Stable signer ids used by the flat schema, which only ever knew about a
// sender and a receiver.
const (
	SenderSignerId   = "sender"
	ReceiverSignerId = "receiver"
)

const (
	senderRole   = "Bên A"
	receiverRole = "Bên B"
)

// Receipt is the legacy flat shape. Enum fields arrive as either strings
// or integers depending on the writer's vintage, so they are held raw and
// parsed once in ToDocument.
type Receipt struct {
	Id             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Location       string `json:"location,omitempty"`
	CreatedDate    string `json:"createdDate,omitempty"`
	ContractNumber string `json:"contractNumber,omitempty"`

	Type        json.RawMessage `json:"type,omitempty"`
	Status      json.RawMessage `json:"status,omitempty"`
	SigningMode json.RawMessage `json:"signingMode,omitempty"`

	SenderName   string `json:"senderName"`
	ReceiverName string `json:"receiverName,omitempty"`

	SenderSignature   *models.SignatureData `json:"senderSignature,omitempty"`
	ReceiverSignature *models.SignatureData `json:"receiverSignature,omitempty"`

	// Some legacy rows carry a single unattributed signature.
	Signature *models.SignatureData `json:"signature,omitempty"`

	SenderSignedAt   *time.Time `json:"senderSignedAt,omitempty"`
	ReceiverSignedAt *time.Time `json:"receiverSignedAt,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	SignedAt  *time.Time `json:"signedAt,omitempty"`
}

// DefaultSignerPolicy decides who an unattributed legacy signature belongs
// to. The historical writers were ambiguous here, so the choice is explicit
// configuration instead of an inference.
type DefaultSignerPolicy int

const (
	// AssignToSender attributes a bare signature to the sender.
	AssignToSender DefaultSignerPolicy = iota
	// DropUnattributed ignores a bare signature entirely.
	DropUnattributed
)

// ToDocument converts a flat receipt into the canonical document shape.
// Unrecognized enum spellings are rejected rather than guessed.
func ToDocument(r *Receipt, policy DefaultSignerPolicy) (*models.Document, error) {
	kind := models.KindReceipt
	if len(r.Type) > 0 {
		v, err := decodeRaw(r.Type)
		if err != nil {
			return nil, err
		}
		kind, err = models.ParseKind(v)
		if err != nil {
			return nil, err
		}
	}

	mode := models.SigningModePublic
	if len(r.SigningMode) > 0 {
		v, err := decodeRaw(r.SigningMode)
		if err != nil {
			return nil, err
		}
		mode, err = models.ParseSigningMode(v)
		if err != nil {
			return nil, err
		}
	}

	senderSig := r.SenderSignature
	receiverSig := r.ReceiverSignature
	if senderSig == nil && receiverSig == nil && r.Signature != nil && policy == AssignToSender {
		senderSig = r.Signature
	}

	doc := &models.Document{
		Id:      r.Id,
		Kind:    kind,
		Title:   r.Title,
		Content: r.Content,
		Metadata: models.Metadata{
			Location:       r.Location,
			CreatedDate:    r.CreatedDate,
			ContractNumber: r.ContractNumber,
		},
		SigningMode: mode,
		CreatedAt:   r.CreatedAt,
		SignedAt:    r.SignedAt,
	}

	doc.Signers = append(doc.Signers, models.Signer{
		Id:            SenderSignerId,
		Role:          senderRole,
		Name:          r.SenderName,
		Signed:        senderSig != nil,
		SignedAt:      r.SenderSignedAt,
		SignatureData: senderSig,
	})
	if r.ReceiverName != "" || receiverSig != nil {
		doc.Signers = append(doc.Signers, models.Signer{
			Id:            ReceiverSignerId,
			Role:          receiverRole,
			Name:          r.ReceiverName,
			Signed:        receiverSig != nil,
			SignedAt:      r.ReceiverSignedAt,
			SignatureData: receiverSig,
		})
	}

	doc.Status = doc.ComputeStatus()

	// A flat row that claims a status it cannot derive is rejected: the
	// status is derived state, not input.
	if len(r.Status) > 0 {
		v, err := decodeRaw(r.Status)
		if err != nil {
			return nil, err
		}
		claimed, err := models.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		if claimed != doc.Status {
			return nil, fmt.Errorf("legacy status %q does not match derived status %q", claimed, doc.Status)
		}
	}

	return doc, nil
}

// FromDocument flattens a canonical document back into the legacy shape.
// Only the first two signers survive the trip; the flat schema has no room
// for more.
func FromDocument(doc *models.Document) *Receipt {
	r := &Receipt{
		Id:             doc.Id,
		Title:          doc.Title,
		Content:        doc.Content,
		Location:       doc.Metadata.Location,
		CreatedDate:    doc.Metadata.CreatedDate,
		ContractNumber: doc.Metadata.ContractNumber,
		Type:           mustRaw(doc.Kind.String()),
		Status:         mustRaw(doc.Status.String()),
		SigningMode:    mustRaw(doc.SigningMode.String()),
		CreatedAt:      doc.CreatedAt,
		SignedAt:       doc.SignedAt,
	}
	if len(doc.Signers) > 0 {
		s := doc.Signers[0]
		r.SenderName = s.Name
		r.SenderSignature = s.SignatureData
		r.SenderSignedAt = s.SignedAt
	}
	if len(doc.Signers) > 1 {
		s := doc.Signers[1]
		r.ReceiverName = s.Name
		r.ReceiverSignature = s.SignatureData
		r.ReceiverSignedAt = s.SignedAt
	}
	return r
}

func decodeRaw(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unable to decode enum value: %v", err)
	}
	return v, nil
}

func mustRaw(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
