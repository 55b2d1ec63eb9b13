// Package hashverify computes content-integrity fingerprints for signable
// document fields and checks them against the fingerprints captured at
// each signing event. The check is advisory: mismatches are returned as
// data, never as errors.
package hashverify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

// signableContent is the canonical shape hashed at signing time. Field
// order is fixed by the struct, so the serialization is stable.
type signableContent struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Metadata models.Metadata `json:"metadata"`
}

// Result is the read-time verification outcome.
type Result struct {
	IsValid              bool     `json:"isValid"`
	Message              string   `json:"message,omitempty"`
	MismatchedSignatures []string `json:"mismatchedSignatures,omitempty"`
}

// Fingerprint hashes the document's signable fields as they exist right
// now. The prefix makes the digest algorithm explicit on the wire.
func Fingerprint(doc *models.Document) (string, error) {
	b, err := json.Marshal(signableContent{
		Title:    doc.Title,
		Content:  doc.Content,
		Metadata: doc.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("marshal signable content: %w", err)
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// Verify compares the current fingerprint against every stored signature
// fingerprint. Signers that have not signed yet are not checked.
func Verify(doc *models.Document) Result {
	current, err := Fingerprint(doc)
	if err != nil {
		return Result{
			IsValid: false,
			Message: fmt.Sprintf("unable to compute content fingerprint: %v", err),
		}
	}

	var mismatched []string
	for _, s := range doc.Signers {
		if !s.Signed || s.ContentHash == "" {
			continue
		}
		if s.ContentHash != current {
			mismatched = append(mismatched, s.Id)
		}
	}

	if len(mismatched) > 0 {
		return Result{
			IsValid:              false,
			Message:              fmt.Sprintf("document content was modified after %d signature(s) were applied", len(mismatched)),
			MismatchedSignatures: mismatched,
		}
	}
	return Result{IsValid: true}
}
