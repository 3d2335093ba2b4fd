package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/export"
)

// ReceiptService composes official payment receipts. Apart from the
// GeneratedAt stamp the view is a pure function of the request and
// barangay records, so re-printing yields the same receipt.
type ReceiptService struct {
	requests  requestStore
	barangays barangayConfigSource
	renderer  *export.ReceiptRenderer
}

// NewReceiptService constructs the service.
func NewReceiptService(requests requestStore, barangays barangayConfigSource, renderer *export.ReceiptRenderer) *ReceiptService {
	if renderer == nil {
		renderer = export.NewReceiptRenderer()
	}
	return &ReceiptService{requests: requests, barangays: barangays, renderer: renderer}
}

// ForRequest loads a request, enforces scope, and composes its receipt.
func (s *ReceiptService) ForRequest(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.ReceiptView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if !actor.SuperAdmin() && actor.BarangayID != request.BarangayID {
		return nil, appErrors.ErrTenantMismatch
	}
	if actor.Role == models.RoleResident && actor.ResidentID != request.ResidentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "residents may only print their own receipts")
	}
	barangay, err := s.barangays.Config(ctx, request.BarangayID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load barangay")
	}
	return Compose(request, barangay)
}

// RenderPDF composes the receipt and renders it for download.
func (s *ReceiptService) RenderPDF(ctx context.Context, requestID string, actor *models.JWTClaims) ([]byte, *models.ReceiptView, error) {
	receipt, err := s.ForRequest(ctx, requestID, actor)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.renderer.Render(receipt)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, receipt, nil
}

// Compose builds the receipt view. A receipt exists once payment details
// are on record (the free-document shortcut writes synthetic ones); a
// request with a fee but no submitted payment has nothing to print.
func Compose(request *models.DocumentRequest, barangay *models.Barangay) (*models.ReceiptView, error) {
	if request.PaymentDetails == nil && request.Amount > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no payment on record for this request")
	}

	receipt := &models.ReceiptView{
		ReceiptNumber:  receiptNumber(request),
		TrackingNumber: request.TrackingNumber,
		ResidentName:   request.ResidentName,
		DocumentType:   request.DocumentType,
		Amount:         request.Amount,
		ApprovalDate:   request.ApprovalDate,
		GeneratedAt:    time.Now().UTC(),
	}
	if barangay != nil {
		receipt.BarangayName = barangay.Name
		receipt.BarangayAddress = barangay.Address
	}
	if details := request.PaymentDetails; details != nil {
		receipt.Method = details.Method
		receipt.ReferenceNumber = details.ReferenceNumber
		receipt.PaymentDate = details.PaymentDate
		if details.VerifiedBy != nil {
			receipt.VerifiedBy = *details.VerifiedBy
		}
		if details.Remarks != nil {
			receipt.Remarks = *details.Remarks
		}
	} else {
		receipt.Method = models.MethodFree
		receipt.ReferenceNumber = models.FreeReferenceNumber
	}
	return receipt, nil
}

// receiptNumber derives RCP-<year>-<tracking suffix>. The year comes from
// the payment (falling back to approval, then request date) so reprints in
// a later year keep the same number.
func receiptNumber(request *models.DocumentRequest) string {
	when := request.RequestDate
	if request.ApprovalDate != nil {
		when = *request.ApprovalDate
	}
	if request.PaymentDetails != nil && request.PaymentDetails.PaymentDate != nil {
		when = *request.PaymentDetails.PaymentDate
	}
	suffix := strings.TrimPrefix(request.TrackingNumber, "BRG-")
	return "RCP-" + when.Format("2006") + "-" + suffix
}
