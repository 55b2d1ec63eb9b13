package docsign

import "errors"

// Typed errors surfaced to the caller. Retry and backoff are caller
// concerns; nothing in this package retries on its own. A resubmission for
// an already-signed signer is not in this list because it is a success.
var (
	// ErrEmptySignature: blank or structurally empty signature input.
	ErrEmptySignature = errors.New("empty signature")
	// ErrUnknownSigner: the signer id does not belong to the document.
	ErrUnknownSigner = errors.New("unknown signer")
	// ErrDocumentLocked: a content edit was attempted after signing began.
	ErrDocumentLocked = errors.New("document is locked after signing began")
	// ErrSigningModeViolation: the document requires an authenticated
	// requester and the request was anonymous.
	ErrSigningModeViolation = errors.New("document requires an authenticated signer")
	// ErrPdfGenerationFailed: the export pipeline failed or timed out.
	ErrPdfGenerationFailed = errors.New("pdf generation failed")
	// ErrRateLimited: the caller must wait before retrying.
	ErrRateLimited = errors.New("rate limited")
)
