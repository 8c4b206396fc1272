package model

import "time"

// Document is a custody record: one accepted upload, its blob locator and its content fingerprint.
// It carries no persistence tags and is shared by the HTTP, service and storage layers.
//
// ContentHash is unique across all records and never changes after creation. AnchorRef is nil until the
// anchoring step succeeds; a record without an anchor is still complete.
type Document struct {
	ID             string    `json:"id"`
	OriginalName   string    `json:"original_name"`
	StorageLocator string    `json:"-"`
	ContentHash    string    `json:"content_hash"`
	ByteSize       int64     `json:"byte_size"`
	MIMEType       string    `json:"mime_type"`
	PageCount      *int      `json:"page_count,omitempty"`
	OwnerRef       string    `json:"owner_ref"`
	DocumentType   string    `json:"document_type"`
	Description    string    `json:"description,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
	AnchorRef      *string   `json:"anchor_ref"`

	// Audit of the verification that admitted the record.
	DetectedType           string   `json:"detected_type"`
	VerificationDecision   Decision `json:"verification_decision"`
	VerificationConfidence float64  `json:"verification_confidence"`
}

// Anchored reports whether an anchor reference has been attached.
func (d *Document) Anchored() bool {
	return d.AnchorRef != nil && *d.AnchorRef != ""
}
