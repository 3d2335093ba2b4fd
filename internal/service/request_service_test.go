package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

type requestRepoStub struct {
	mu         sync.Mutex
	requests   map[string]*models.DocumentRequest
	filter     models.RequestFilter
	nextID     int
	createErrs []error
	applyErr   error
	getErr     error
	getHook    func()
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: make(map[string]*models.DocumentRequest)}
}

func (r *requestRepoStub) Create(ctx context.Context, request *models.DocumentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	r.nextID++
	if request.ID == "" {
		request.ID = strings.Repeat("0", r.nextID)
	}
	copy := *request
	r.requests[request.ID] = &copy
	return nil
}

func (r *requestRepoStub) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	r.mu.Lock()
	if r.getErr != nil {
		r.mu.Unlock()
		return nil, r.getErr
	}
	req, ok := r.requests[id]
	var snapshot models.DocumentRequest
	if ok {
		snapshot = *req
	}
	r.mu.Unlock()
	if r.getHook != nil {
		r.getHook()
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &snapshot, nil
}

func (r *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = filter
	result := make([]models.DocumentRequest, 0, len(r.requests))
	for _, req := range r.requests {
		result = append(result, *req)
	}
	return result, nil
}

func (r *requestRepoStub) ApplyTransition(ctx context.Context, update repository.TransitionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	req, ok := r.requests[update.ID]
	if !ok || req.Status != update.FromStatus || req.Version != update.FromVersion {
		return sql.ErrNoRows
	}
	req.Status = update.ToStatus
	req.Version++
	if update.ApprovalDate != nil {
		req.ApprovalDate = update.ApprovalDate
	}
	if update.PaymentSubmittedDate != nil {
		req.PaymentSubmittedDate = update.PaymentSubmittedDate
	}
	if update.PaymentVerifiedDate != nil {
		req.PaymentVerifiedDate = update.PaymentVerifiedDate
	}
	if update.ReleaseDate != nil {
		req.ReleaseDate = update.ReleaseDate
	}
	if update.PaymentDetails != nil {
		req.PaymentDetails = update.PaymentDetails
	}
	if update.RejectionReason != nil {
		req.RejectionReason = update.RejectionReason
	}
	return nil
}

func (r *requestRepoStub) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.requests, id)
	return nil
}

type barangayConfigStub struct {
	barangays map[string]*models.Barangay
}

func (b *barangayConfigStub) Config(ctx context.Context, barangayID string) (*models.Barangay, error) {
	if brgy, ok := b.barangays[barangayID]; ok {
		return brgy, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func activeBarangay(id string, pricing models.PricingTable) *models.Barangay {
	return &models.Barangay{ID: id, Name: "San Isidro", Active: true, Pricing: pricing}
}

func residentActor(barangayID, residentID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + residentID, Role: models.RoleResident, FullName: "Juan Dela Cruz", BarangayID: barangayID, ResidentID: residentID}
}

func staffActor(role models.UserRole, barangayID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: role, FullName: "Maria Santos", BarangayID: barangayID}
}

func newTestRequestService(repo *requestRepoStub, barangays *barangayConfigStub, audit *auditStub) *RequestService {
	return NewRequestService(repo, barangays, audit, nil, nil)
}

func TestRequestServiceCreate(t *testing.T) {
	repo := newRequestRepoStub()
	barangays := &barangayConfigStub{barangays: map[string]*models.Barangay{
		"brgy-1": activeBarangay("brgy-1", models.PricingTable{models.DocBarangayClearance: 60}),
	}}
	audit := &auditStub{}
	svc := newTestRequestService(repo, barangays, audit)

	request, err := svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Barangay Clearance"}, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, 60.0, request.Amount, "tenant override wins over the default fee")
	assert.Equal(t, int64(1), request.Version)
	assert.True(t, strings.HasPrefix(request.TrackingNumber, "BRG-"))
	assert.Len(t, request.TrackingNumber, 10)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestCreate, audit.logs[0].Action)
}

func TestRequestServiceCreateDefaultPricing(t *testing.T) {
	repo := newRequestRepoStub()
	barangays := &barangayConfigStub{barangays: map[string]*models.Barangay{
		"brgy-1": activeBarangay("brgy-1", nil),
	}}
	svc := newTestRequestService(repo, barangays, &auditStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Certificate of Indigency"}, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, request.Amount)

	request, err = svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Business Permit"}, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, 250.0, request.Amount)
}

func TestRequestServiceCreateRejections(t *testing.T) {
	repo := newRequestRepoStub()
	barangays := &barangayConfigStub{barangays: map[string]*models.Barangay{
		"brgy-1":    activeBarangay("brgy-1", nil),
		"brgy-idle": {ID: "brgy-idle", Active: false},
	}}
	svc := newTestRequestService(repo, barangays, &auditStub{})

	_, err := svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Barangay Clearance"}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Barangay Clearance"}, staffActor(models.RoleSecretary, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Voter Certificate"}, residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrInvalidDocumentType.Code)

	_, err = svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Barangay Clearance"}, residentActor("brgy-idle", "res-1"))
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestRequestServiceCreateRetriesTracking(t *testing.T) {
	repo := newRequestRepoStub()
	repo.createErrs = []error{repository.ErrDuplicateTracking, repository.ErrDuplicateTracking, nil}
	barangays := &barangayConfigStub{barangays: map[string]*models.Barangay{
		"brgy-1": activeBarangay("brgy-1", nil),
	}}
	svc := newTestRequestService(repo, barangays, &auditStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestBody{DocumentType: "Barangay Clearance"}, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, request.TrackingNumber)
}

func seedRequest(repo *requestRepoStub, status models.RequestStatus, amount float64) *models.DocumentRequest {
	request := &models.DocumentRequest{
		ID:             "req-1",
		BarangayID:     "brgy-1",
		ResidentID:     "res-1",
		ResidentName:   "Juan Dela Cruz",
		DocumentType:   models.DocBarangayClearance,
		Amount:         amount,
		Status:         status,
		TrackingNumber: "BRG-A1B2C3",
		Version:        3,
	}
	copy := *request
	repo.requests[request.ID] = &copy
	return request
}

func TestRequestServiceHappyPathPaidDocument(t *testing.T) {
	repo := newRequestRepoStub()
	audit := &auditStub{}
	svc := newTestRequestService(repo, nil, audit)
	ctx := context.Background()
	seedRequest(repo, models.StatusPending, 50)

	secretary := staffActor(models.RoleSecretary, "brgy-1")
	treasurer := staffActor(models.RoleTreasurer, "brgy-1")
	resident := residentActor("brgy-1", "res-1")

	request, err := svc.Transition(ctx, "req-1", models.EventApprove, dto.TransitionPayload{}, secretary)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
	assert.NotNil(t, request.ApprovalDate)
	assert.Equal(t, int64(4), request.Version)

	request, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method:          models.MethodGCash,
		ReferenceNumber: "GC-12345",
		ProofURL:        "payment-proofs/brgy-1/req-1/proof.jpg",
		PaymentDate:     "2026-08-30",
	}, resident)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentSubmitted, request.Status)
	require.NotNil(t, request.PaymentDetails)
	assert.Equal(t, models.MethodGCash, request.PaymentDetails.Method)
	assert.Equal(t, "GC-12345", request.PaymentDetails.ReferenceNumber)
	require.NotNil(t, request.PaymentDetails.PaymentDate)
	assert.Equal(t, 2026, request.PaymentDetails.PaymentDate.Year())

	request, err = svc.Transition(ctx, "req-1", models.EventVerifyPayment, dto.TransitionPayload{Remarks: "Matched GCash ledger"}, treasurer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentVerified, request.Status)
	require.NotNil(t, request.PaymentDetails.VerifiedBy)
	assert.Equal(t, treasurer.UserID, *request.PaymentDetails.VerifiedBy)
	assert.Equal(t, "Matched GCash ledger", *request.PaymentDetails.Remarks)

	request, err = svc.Transition(ctx, "req-1", models.EventMarkReady, dto.TransitionPayload{}, secretary)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPickup, request.Status)

	request, err = svc.Transition(ctx, "req-1", models.EventRelease, dto.TransitionPayload{}, secretary)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReleased, request.Status)
	assert.NotNil(t, request.ReleaseDate)
	assert.Equal(t, int64(8), request.Version)
	assert.Len(t, audit.logs, 5)
}

func TestRequestServiceFreeDocumentShortcut(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 0)

	request, err := svc.Transition(context.Background(), "req-1", models.EventApprove, dto.TransitionPayload{}, staffActor(models.RoleCaptain, "brgy-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentVerified, request.Status)
	assert.NotNil(t, request.ApprovalDate)
	assert.NotNil(t, request.PaymentVerifiedDate)
	require.NotNil(t, request.PaymentDetails)
	assert.Equal(t, models.MethodFree, request.PaymentDetails.Method)
	assert.Equal(t, models.FreeReferenceNumber, request.PaymentDetails.ReferenceNumber)
}

func TestRequestServiceRejectRequiresReason(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 50)
	captain := staffActor(models.RoleCaptain, "brgy-1")

	_, err := svc.Transition(context.Background(), "req-1", models.EventReject, dto.TransitionPayload{Reason: "   "}, captain)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	request, err := svc.Transition(context.Background(), "req-1", models.EventReject, dto.TransitionPayload{Reason: "Incomplete resident records"}, captain)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, request.Status)
	assert.Equal(t, "Incomplete resident records", *request.RejectionReason)

	// terminal state: nothing may leave Rejected
	_, err = svc.Transition(context.Background(), "req-1", models.EventApprove, dto.TransitionPayload{}, captain)
	requireAppErr(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestRequestServicePaymentRejectionReturnsToApproved(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seed := seedRequest(repo, models.StatusPaymentSubmitted, 50)
	repo.requests[seed.ID].PaymentDetails = &models.PaymentDetails{Method: models.MethodPayMaya, ReferenceNumber: "PM-999"}
	treasurer := staffActor(models.RoleTreasurer, "brgy-1")

	_, err := svc.Transition(context.Background(), "req-1", models.EventRejectPayment, dto.TransitionPayload{}, treasurer)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	request, err := svc.Transition(context.Background(), "req-1", models.EventRejectPayment, dto.TransitionPayload{Remarks: "Reference not found"}, treasurer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
	assert.Equal(t, "Payment rejected: Reference not found", *request.RejectionReason)
	require.NotNil(t, request.PaymentDetails.Remarks)
	assert.Equal(t, "Reference not found", *request.PaymentDetails.Remarks)

	// resident can resubmit from Approved
	resident := residentActor("brgy-1", "res-1")
	request, err = svc.Transition(context.Background(), "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method:          models.MethodBankTransfer,
		ReferenceNumber: "BT-100",
		ProofURL:        "payment-proofs/brgy-1/req-1/retry.jpg",
	}, resident)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentSubmitted, request.Status)
}

func TestRequestServiceSubmitPaymentGuards(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusApproved, 50)
	ctx := context.Background()
	owner := residentActor("brgy-1", "res-1")

	_, err := svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: "Cheque", ReferenceNumber: "X", ProofURL: "p",
	}, owner)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	_, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: models.MethodGCash, ProofURL: "p",
	}, owner)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	_, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: models.MethodGCash, ReferenceNumber: "GC-1",
	}, owner)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	_, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: models.MethodGCash, ReferenceNumber: "GC-1", ProofURL: "p", PaymentDate: "30-08-2026",
	}, owner)
	requireAppErr(t, err, appErrors.ErrPreconditionFailed.Code)

	// a different resident of the same barangay may not pay for it
	other := residentActor("brgy-1", "res-2")
	_, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: models.MethodGCash, ReferenceNumber: "GC-1", ProofURL: "p",
	}, other)
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	// staff cannot submit payment on a resident's behalf
	_, err = svc.Transition(ctx, "req-1", models.EventSubmitPayment, dto.TransitionPayload{
		Method: models.MethodGCash, ReferenceNumber: "GC-1", ProofURL: "p",
	}, staffActor(models.RoleAdmin, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)
}

func TestRequestServiceRoleGates(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	ctx := context.Background()

	seedRequest(repo, models.StatusPending, 50)
	_, err := svc.Transition(ctx, "req-1", models.EventApprove, dto.TransitionPayload{}, staffActor(models.RoleTreasurer, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.Transition(ctx, "req-1", models.EventReject, dto.TransitionPayload{Reason: "x"}, staffActor(models.RoleSecretary, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	seedRequest(repo, models.StatusPaymentSubmitted, 50)
	repo.requests["req-1"].PaymentDetails = &models.PaymentDetails{Method: models.MethodGCash, ReferenceNumber: "GC-1"}
	_, err = svc.Transition(ctx, "req-1", models.EventVerifyPayment, dto.TransitionPayload{}, staffActor(models.RoleSecretary, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	// superadmin counts as admin for staff gates
	super := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin, BarangayID: "hq"}
	request, err := svc.Transition(ctx, "req-1", models.EventVerifyPayment, dto.TransitionPayload{}, super)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentVerified, request.Status)
}

func TestRequestServiceTenantIsolation(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 50)

	_, err := svc.Transition(context.Background(), "req-1", models.EventApprove, dto.TransitionPayload{}, staffActor(models.RoleAdmin, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	_, err = svc.Get(context.Background(), "req-1", staffActor(models.RoleAdmin, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	err = svc.Delete(context.Background(), "req-1", staffActor(models.RoleCaptain, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)
}

func TestRequestServiceConcurrentModification(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 50)
	// another caller raced the stored row forward
	repo.requests["req-1"].Version = 9

	_, err := svc.Transition(context.Background(), "req-1", models.EventApprove, dto.TransitionPayload{}, staffActor(models.RoleAdmin, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrConcurrentModification.Code)
}

func TestRequestServiceConcurrentApproveSingleWinner(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 50)

	// Both callers must read the same snapshot before either applies,
	// otherwise the loser sees the committed state instead of a stale one.
	var barrier sync.WaitGroup
	barrier.Add(2)
	repo.getHook = func() {
		barrier.Done()
		barrier.Wait()
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), "req-1", models.EventApprove, dto.TransitionPayload{}, staffActor(models.RoleAdmin, "brgy-1"))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		requireAppErr(t, err, appErrors.ErrConcurrentModification.Code)
		lost++
	}
	assert.Equal(t, 1, won, "exactly one caller may apply the transition")
	assert.Equal(t, 1, lost)

	repo.getHook = nil
	stored, err := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Equal(t, int64(4), stored.Version)
}

func TestRequestServiceInvalidTransitions(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	ctx := context.Background()
	admin := staffActor(models.RoleAdmin, "brgy-1")

	seedRequest(repo, models.StatusPending, 50)
	_, err := svc.Transition(ctx, "req-1", models.EventMarkReady, dto.TransitionPayload{}, admin)
	requireAppErr(t, err, appErrors.ErrInvalidTransition.Code)

	seedRequest(repo, models.StatusReleased, 50)
	_, err = svc.Transition(ctx, "req-1", models.EventReject, dto.TransitionPayload{Reason: "late"}, admin)
	requireAppErr(t, err, appErrors.ErrInvalidTransition.Code)

	_, err = svc.Transition(ctx, "req-1", "ARCHIVE", dto.TransitionPayload{}, admin)
	requireAppErr(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Transition(ctx, "missing", models.EventApprove, dto.TransitionPayload{}, admin)
	requireAppErr(t, err, appErrors.ErrNotFound.Code)
}

func TestRequestServiceDelete(t *testing.T) {
	repo := newRequestRepoStub()
	audit := &auditStub{}
	svc := newTestRequestService(repo, nil, audit)
	seedRequest(repo, models.StatusReleased, 50)

	err := svc.Delete(context.Background(), "req-1", staffActor(models.RoleSecretary, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	err = svc.Delete(context.Background(), "req-1", staffActor(models.RoleCaptain, "brgy-1"))
	require.NoError(t, err)
	assert.Empty(t, repo.requests)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestDelete, audit.logs[0].Action)

	err = svc.Delete(context.Background(), "req-1", staffActor(models.RoleAdmin, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrNotFound.Code)
}

func TestRequestServiceListScopes(t *testing.T) {
	repo := newRequestRepoStub()
	svc := newTestRequestService(repo, nil, &auditStub{})
	seedRequest(repo, models.StatusPending, 50)
	ctx := context.Background()

	_, err := svc.ListForResident(ctx, "res-2", dto.RequestQuery{}, residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.ListForResident(ctx, "res-1", dto.RequestQuery{}, residentActor("brgy-1", "res-1"))
	require.NoError(t, err)
	assert.Equal(t, "brgy-1", repo.filter.BarangayID)
	assert.Equal(t, "res-1", repo.filter.ResidentID)

	_, err = svc.ListForBarangay(ctx, "brgy-1", dto.RequestQuery{Status: []models.RequestStatus{models.StatusPending}}, residentActor("brgy-1", "res-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.ListForBarangay(ctx, "brgy-1", dto.RequestQuery{Status: []models.RequestStatus{models.StatusPending}}, staffActor(models.RoleSecretary, "brgy-1"))
	require.NoError(t, err)
	assert.Equal(t, []models.RequestStatus{models.StatusPending}, repo.filter.Status)

	_, err = svc.ListForBarangay(ctx, "brgy-1", dto.RequestQuery{}, staffActor(models.RoleSecretary, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)
}

func requireAppErr(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
