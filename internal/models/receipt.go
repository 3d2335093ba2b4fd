package models

import "time"

// ReceiptView is the deterministic view-model for an official payment
// receipt. GeneratedAt is explicitly outside the equality contract; every
// other field is a pure function of the request and barangay records.
type ReceiptView struct {
	ReceiptNumber   string       `json:"receiptNumber"`
	TrackingNumber  string       `json:"trackingNumber"`
	BarangayName    string       `json:"barangayName"`
	BarangayAddress string       `json:"barangayAddress"`
	ResidentName    string       `json:"residentName"`
	DocumentType    DocumentType `json:"documentType"`
	Amount          float64      `json:"amount"`
	Method          string       `json:"method"`
	ReferenceNumber string       `json:"referenceNumber"`
	PaymentDate     *time.Time   `json:"paymentDate,omitempty"`
	ApprovalDate    *time.Time   `json:"approvalDate,omitempty"`
	VerifiedBy      string       `json:"verifiedBy,omitempty"`
	Remarks         string       `json:"remarks,omitempty"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}
