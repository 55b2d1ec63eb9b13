package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentKind is fixed at creation and never changes afterwards.
type DocumentKind int

const (
	KindReceipt DocumentKind = iota
	KindContract
)

// SigningMode gates who may submit a signature for a document.
type SigningMode int

const (
	SigningModePublic SigningMode = iota
	SigningModeRequiredLogin
)

// DocumentStatus is derived from the signers and never set by clients.
type DocumentStatus int

const (
	StatusPending DocumentStatus = iota
	StatusPartiallySigned
	StatusSigned
)

type Metadata struct {
	Location       string            `json:"location,omitempty"`
	CreatedDate    string            `json:"createdDate,omitempty"`
	ContractNumber string            `json:"contractNumber,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

type Signer struct {
	Id            string         `json:"id"`
	Role          string         `json:"role"`
	Name          string         `json:"name"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Signed        bool           `json:"signed"`
	SignedAt      *time.Time     `json:"signedAt,omitempty"`
	SignatureData *SignatureData `json:"signatureData,omitempty"`

	// ContentHash is the fingerprint of the document's signable content
	// captured the instant this signer signed.
	ContentHash string `json:"contentHash,omitempty"`
}

type Document struct {
	Id          string         `json:"id"`
	Kind        DocumentKind   `json:"kind"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Metadata    Metadata       `json:"metadata"`
	SigningMode SigningMode    `json:"signingMode"`
	Status      DocumentStatus `json:"status"`
	Signers     []Signer       `json:"signers"`
	CreatedBy   string         `json:"createdBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	SignedAt    *time.Time     `json:"signedAt,omitempty"`
	ViewedAt    *time.Time     `json:"viewedAt,omitempty"`
}

// SignerById returns the signer with the given id, or nil.
func (d *Document) SignerById(id string) *Signer {
	for i := range d.Signers {
		if d.Signers[i].Id == id {
			return &d.Signers[i]
		}
	}
	return nil
}

// ComputeStatus derives the status from the signers list: signed iff every
// signer signed, partially signed iff at least one did.
func (d *Document) ComputeStatus() DocumentStatus {
	signed := 0
	for _, s := range d.Signers {
		if s.Signed {
			signed++
		}
	}
	switch {
	case len(d.Signers) > 0 && signed == len(d.Signers):
		return StatusSigned
	case signed > 0:
		return StatusPartiallySigned
	}
	return StatusPending
}

var kindNames = map[DocumentKind]string{
	KindReceipt:  "receipt",
	KindContract: "contract",
}

var signingModeNames = map[SigningMode]string{
	SigningModePublic:        "public",
	SigningModeRequiredLogin: "required_login",
}

var statusNames = map[DocumentStatus]string{
	StatusPending:         "pending",
	StatusPartiallySigned: "partially_signed",
	StatusSigned:          "signed",
}

func (k DocumentKind) String() string    { return kindNames[k] }
func (m SigningMode) String() string     { return signingModeNames[m] }
func (st DocumentStatus) String() string { return statusNames[st] }

// ParseKind accepts the string and integer spellings seen on the wire and
// rejects anything else. The legacy receipt schema encodes enums as
// integers, the unified schema as strings.
func ParseKind(v any) (DocumentKind, error) {
	return parseEnum("kind", v, kindNames)
}

func ParseSigningMode(v any) (SigningMode, error) {
	return parseEnum("signingMode", v, signingModeNames)
}

func ParseStatus(v any) (DocumentStatus, error) {
	return parseEnum("status", v, statusNames)
}

func parseEnum[T ~int](field string, v any, names map[T]string) (T, error) {
	switch val := v.(type) {
	case string:
		for k, name := range names {
			if name == val {
				return k, nil
			}
		}
	case int:
		if _, ok := names[T(val)]; ok {
			return T(val), nil
		}
	case float64:
		// encoding/json decodes bare numbers as float64
		if val == float64(int(val)) {
			if _, ok := names[T(int(val))]; ok {
				return T(int(val)), nil
			}
		}
	}
	return 0, fmt.Errorf("unrecognized %s value: %v", field, v)
}

func (k DocumentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *DocumentKind) UnmarshalJSON(b []byte) error {
	v, err := decodeEnumValue(b)
	if err != nil {
		return err
	}
	*k, err = ParseKind(v)
	return err
}

func (m SigningMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *SigningMode) UnmarshalJSON(b []byte) error {
	v, err := decodeEnumValue(b)
	if err != nil {
		return err
	}
	*m, err = ParseSigningMode(v)
	return err
}

func (st DocumentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.String())
}

func (st *DocumentStatus) UnmarshalJSON(b []byte) error {
	v, err := decodeEnumValue(b)
	if err != nil {
		return err
	}
	*st, err = ParseStatus(v)
	return err
}

func decodeEnumValue(b []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
