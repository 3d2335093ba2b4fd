package models

// NotificationKind orders resident alerts by urgency.
type NotificationKind string

const (
	NotifyReadyForPickup  NotificationKind = "READY_FOR_PICKUP"
	NotifyBeingPrepared   NotificationKind = "BEING_PREPARED"
	NotifyPaymentRequired NotificationKind = "PAYMENT_REQUIRED"
	NotifyRejected        NotificationKind = "REJECTED"
)

// Notification is a read-side alert derived from a resident's requests.
// Projection is a pure function of request state; nothing is persisted.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	RequestID      string           `json:"requestId"`
	TrackingNumber string           `json:"trackingNumber"`
	DocumentType   DocumentType     `json:"documentType"`
	Amount         float64          `json:"amount"`
	Message        string           `json:"message"`
	ActionRequired bool             `json:"actionRequired"`
}
