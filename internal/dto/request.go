package dto

import "github.com/noah-isme/brgy-docs-api/internal/models"

// CreateRequestBody is the payload for submitting a new document request.
// The fee is never taken from the client; it is resolved server-side and
// snapshotted onto the record.
type CreateRequestBody struct {
	DocumentType string `json:"documentType" validate:"required"`
}

// TransitionPayload carries the per-event fields of a transition call.
// Which fields are required depends on the event; the engine rejects
// malformed payloads with PRECONDITION_FAILED before touching the record.
type TransitionPayload struct {
	// Reason accompanies REJECT.
	Reason string `json:"reason,omitempty"`

	// Remarks accompany VERIFY_PAYMENT (optional) and REJECT_PAYMENT (required).
	Remarks string `json:"remarks,omitempty"`

	// Payment fields accompany SUBMIT_PAYMENT.
	Method          string `json:"method,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	PaymentDate     string `json:"paymentDate,omitempty"`
	ProofURL        string `json:"proofUrl,omitempty"`
}

// RequestQuery mirrors the supported listing filters.
type RequestQuery struct {
	Status       []models.RequestStatus
	DocumentType models.DocumentType
	Limit        int
	Offset       int
}

// ProofUploadResult returns the durable reference for an uploaded payment
// proof plus a signed, time-limited download token.
type ProofUploadResult struct {
	RequestID   string `json:"requestId"`
	ProofURL    string `json:"proofUrl"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

// NotificationFeed bundles a resident's projected alerts with the badge count.
type NotificationFeed struct {
	Count         int                   `json:"count"`
	Notifications []models.Notification `json:"notifications"`
}
