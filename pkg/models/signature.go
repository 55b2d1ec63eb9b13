package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SignatureKind distinguishes freehand strokes from typed text.
type SignatureKind int

const (
	SignatureDraw SignatureKind = iota
	SignatureTyped
)

// SignatureData is the normalized, re-renderable representation of a
// captured signature. For SignatureDraw the payload is a serialized array
// of stroke arrays of {x, y, t} points; for SignatureTyped it is the
// literal text.
type SignatureData struct {
	Kind       SignatureKind `json:"kind"`
	Payload    string        `json:"payload"`
	FontFamily string        `json:"fontFamily,omitempty"`
	Color      string        `json:"color,omitempty"`
}

var signatureKindNames = map[SignatureKind]string{
	SignatureDraw:  "draw",
	SignatureTyped: "typed",
}

func (k SignatureKind) String() string { return signatureKindNames[k] }

func ParseSignatureKind(v any) (SignatureKind, error) {
	return parseEnum("signature kind", v, signatureKindNames)
}

func (k SignatureKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SignatureKind) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&v); err != nil {
		return err
	}
	var err error
	*k, err = ParseSignatureKind(v)
	return err
}

// Validate rejects structurally broken signature data before it reaches
// the signing state machine. Emptiness of draw payloads is the signature
// codec's concern.
func (s *SignatureData) Validate() error {
	if s == nil {
		return fmt.Errorf("missing signature data")
	}
	if s.Payload == "" {
		return fmt.Errorf("empty signature payload")
	}
	return nil
}
