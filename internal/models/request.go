package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentType enumerates the documents a resident can request.
type DocumentType string

const (
	DocBarangayClearance DocumentType = "Barangay Clearance"
	DocResidency         DocumentType = "Certificate of Residency"
	DocIndigency         DocumentType = "Certificate of Indigency"
	DocBusinessPermit    DocumentType = "Business Permit"
	DocGoodMoral         DocumentType = "Good Moral Character Certificate"
	DocSoloParent        DocumentType = "Solo Parent Certificate"
)

// DocumentTypes lists every supported document type in display order.
var DocumentTypes = []DocumentType{
	DocBarangayClearance,
	DocResidency,
	DocIndigency,
	DocBusinessPermit,
	DocGoodMoral,
	DocSoloParent,
}

// Valid reports whether the type belongs to the fixed enumeration.
func (d DocumentType) Valid() bool {
	for _, t := range DocumentTypes {
		if d == t {
			return true
		}
	}
	return false
}

// RequestStatus captures the lifecycle state of a document request.
type RequestStatus string

const (
	StatusPending          RequestStatus = "Pending"
	StatusApproved         RequestStatus = "Approved"
	StatusPaymentSubmitted RequestStatus = "Payment Submitted"
	StatusPaymentVerified  RequestStatus = "Payment Verified"
	StatusReadyForPickup   RequestStatus = "Ready for Pickup"
	StatusReleased         RequestStatus = "Released"
	StatusRejected         RequestStatus = "Rejected"
)

// Terminal reports whether no further transition may leave this status.
func (s RequestStatus) Terminal() bool {
	return s == StatusReleased || s == StatusRejected
}

// RequestEvent names a transition of the request state machine.
type RequestEvent string

const (
	EventApprove       RequestEvent = "APPROVE"
	EventReject        RequestEvent = "REJECT"
	EventSubmitPayment RequestEvent = "SUBMIT_PAYMENT"
	EventVerifyPayment RequestEvent = "VERIFY_PAYMENT"
	EventRejectPayment RequestEvent = "REJECT_PAYMENT"
	EventMarkReady     RequestEvent = "MARK_READY"
	EventRelease       RequestEvent = "RELEASE"
)

// Payment method values accepted from residents. MethodFree is synthetic
// and only ever written by the engine for zero-amount approvals.
const (
	MethodGCash          = "GCash"
	MethodPayMaya        = "PayMaya"
	MethodBankTransfer   = "Bank Transfer"
	MethodOverTheCounter = "Over the Counter"
	MethodOther          = "Other"
	MethodFree           = "Free"

	// FreeReferenceNumber marks the synthetic payment record attached to
	// free documents at approval time.
	FreeReferenceNumber = "N/A - Free Document"
)

// PaymentMethods lists the methods a resident may choose when submitting proof.
var PaymentMethods = []string{
	MethodGCash,
	MethodPayMaya,
	MethodBankTransfer,
	MethodOverTheCounter,
	MethodOther,
}

// ValidPaymentMethod reports whether residents may submit the given method.
func ValidPaymentMethod(m string) bool {
	for _, method := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// PaymentDetails records a submitted payment and its verification outcome.
// Stored as a JSONB column; mutated only by the submit/verify/reject-payment
// transitions.
type PaymentDetails struct {
	Method          string     `json:"method"`
	ReferenceNumber string     `json:"referenceNumber"`
	ProofURL        string     `json:"proofUrl,omitempty"`
	PaymentDate     *time.Time `json:"paymentDate,omitempty"`
	VerifiedBy      *string    `json:"verifiedBy,omitempty"`
	VerifiedDate    *time.Time `json:"verifiedDate,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
}

// Value implements driver.Valuer so the struct round-trips through JSONB.
func (p *PaymentDetails) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *PaymentDetails) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported payment details type %T", src)
	}
}

// DocumentRequest is one resident's request for an official document.
// Status, the nullable date fields and payment details are owned by the
// request engine; callers never write them directly.
type DocumentRequest struct {
	ID             string       `db:"id" json:"id"`
	BarangayID     string       `db:"barangay_id" json:"barangayId"`
	ResidentID     string       `db:"resident_id" json:"residentId"`
	ResidentName   string       `db:"resident_name" json:"residentName"`
	DocumentType   DocumentType `db:"document_type" json:"documentType"`
	Amount         float64      `db:"amount" json:"amount"`
	Status         RequestStatus `db:"status" json:"status"`
	TrackingNumber string       `db:"tracking_number" json:"trackingNumber"`
	Version        int64        `db:"version" json:"version"`

	RequestDate          time.Time  `db:"request_date" json:"requestDate"`
	ApprovalDate         *time.Time `db:"approval_date" json:"approvalDate,omitempty"`
	PaymentSubmittedDate *time.Time `db:"payment_submitted_date" json:"paymentSubmittedDate,omitempty"`
	PaymentVerifiedDate  *time.Time `db:"payment_verified_date" json:"paymentVerifiedDate,omitempty"`
	ReleaseDate          *time.Time `db:"release_date" json:"releaseDate,omitempty"`

	PaymentDetails  *PaymentDetails `db:"payment_details" json:"paymentDetails,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejectionReason,omitempty"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	BarangayID   string
	ResidentID   string
	Status       []RequestStatus
	DocumentType DocumentType
	Limit        int
	Offset       int
}
