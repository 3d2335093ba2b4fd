package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

func paidRequest() *models.DocumentRequest {
	approved := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	paid := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	verifier := "treasurer-1"
	return &models.DocumentRequest{
		ID:             "req-1",
		BarangayID:     "brgy-1",
		ResidentID:     "res-1",
		ResidentName:   "Juan Dela Cruz",
		DocumentType:   models.DocBarangayClearance,
		Amount:         50,
		Status:         models.StatusPaymentVerified,
		TrackingNumber: "BRG-A1B2C3",
		ApprovalDate:   &approved,
		PaymentDetails: &models.PaymentDetails{
			Method:          models.MethodGCash,
			ReferenceNumber: "GC-12345",
			PaymentDate:     &paid,
			VerifiedBy:      &verifier,
		},
	}
}

func TestComposeReceipt(t *testing.T) {
	request := paidRequest()
	barangay := activeBarangay("brgy-1", nil)
	barangay.Address = "Iloilo City, Iloilo"

	receipt, err := Compose(request, barangay)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-A1B2C3", receipt.ReceiptNumber)
	assert.Equal(t, "San Isidro", receipt.BarangayName)
	assert.Equal(t, models.MethodGCash, receipt.Method)
	assert.Equal(t, "treasurer-1", receipt.VerifiedBy)
	assert.False(t, receipt.GeneratedAt.IsZero())

	// deterministic apart from the generation stamp
	again, err := Compose(request, barangay)
	require.NoError(t, err)
	first, second := *receipt, *again
	first.GeneratedAt, second.GeneratedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
}

func TestComposeReceiptYearFromPayment(t *testing.T) {
	request := paidRequest()
	paid := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	request.PaymentDetails.PaymentDate = &paid

	receipt, err := Compose(request, nil)
	require.NoError(t, err)
	assert.Equal(t, "RCP-2025-A1B2C3", receipt.ReceiptNumber)
}

func TestComposeReceiptFreeDocument(t *testing.T) {
	approved := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	request := &models.DocumentRequest{
		ID:             "req-2",
		BarangayID:     "brgy-1",
		ResidentID:     "res-1",
		ResidentName:   "Juan Dela Cruz",
		DocumentType:   models.DocIndigency,
		Amount:         0,
		Status:         models.StatusPaymentVerified,
		TrackingNumber: "BRG-FREE01",
		ApprovalDate:   &approved,
	}

	receipt, err := Compose(request, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MethodFree, receipt.Method)
	assert.Equal(t, models.FreeReferenceNumber, receipt.ReferenceNumber)
	assert.Equal(t, "RCP-2026-FREE01", receipt.ReceiptNumber)
}

func TestComposeReceiptRequiresPayment(t *testing.T) {
	request := paidRequest()
	request.PaymentDetails = nil

	_, err := Compose(request, nil)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestReceiptServiceScope(t *testing.T) {
	repo := newRequestRepoStub()
	request := paidRequest()
	repo.requests[request.ID] = request
	barangays := &barangayConfigStub{barangays: map[string]*models.Barangay{
		"brgy-1": activeBarangay("brgy-1", nil),
	}}
	svc := NewReceiptService(repo, barangays, nil)
	ctx := context.Background()

	_, err := svc.ForRequest(ctx, "req-1", residentActor("brgy-1", "res-2"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.ForRequest(ctx, "req-1", staffActor(models.RoleSecretary, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	receipt, err := svc.ForRequest(ctx, "req-1", residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-A1B2C3", receipt.ReceiptNumber)

	pdf, receipt, err := svc.RenderPDF(ctx, "req-1", staffActor(models.RoleTreasurer, "brgy-1"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
	assert.NotNil(t, receipt)
}

func TestReceiptServiceRepoFailureIsInternal(t *testing.T) {
	repo := newRequestRepoStub()
	repo.requests["req-1"] = paidRequest()

	svc := NewReceiptService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.ForRequest(ctx, "missing", residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrNotFound.Code)

	repo.getErr = errors.New("connection refused")
	_, err = svc.ForRequest(ctx, "req-1", residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrInternal.Code)
}
