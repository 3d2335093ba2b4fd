package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.DocumentRequest) error
	GetByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, error)
	ApplyTransition(ctx context.Context, update repository.TransitionUpdate) error
	Delete(ctx context.Context, id string) error
}

type barangayConfigSource interface {
	Config(ctx context.Context, barangayID string) (*models.Barangay, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type transitionObserver interface {
	ObserveTransition(event models.RequestEvent, outcome string)
}

// transitionRule binds an event to its allowed source states, its target
// state, and the roles permitted to fire it. SUPERADMIN satisfies any rule
// that admits ADMIN; it never satisfies a resident-only rule.
type transitionRule struct {
	from  []models.RequestStatus
	to    models.RequestStatus
	roles []models.UserRole
}

var transitionTable = map[models.RequestEvent]transitionRule{
	models.EventApprove: {
		from:  []models.RequestStatus{models.StatusPending},
		to:    models.StatusApproved,
		roles: []models.UserRole{models.RoleAdmin, models.RoleCaptain, models.RoleSecretary},
	},
	models.EventReject: {
		from:  []models.RequestStatus{models.StatusPending, models.StatusApproved, models.StatusPaymentSubmitted},
		to:    models.StatusRejected,
		roles: []models.UserRole{models.RoleAdmin, models.RoleCaptain},
	},
	models.EventSubmitPayment: {
		from:  []models.RequestStatus{models.StatusApproved},
		to:    models.StatusPaymentSubmitted,
		roles: []models.UserRole{models.RoleResident},
	},
	models.EventVerifyPayment: {
		from:  []models.RequestStatus{models.StatusPaymentSubmitted},
		to:    models.StatusPaymentVerified,
		roles: []models.UserRole{models.RoleAdmin, models.RoleTreasurer},
	},
	models.EventRejectPayment: {
		from:  []models.RequestStatus{models.StatusPaymentSubmitted},
		to:    models.StatusApproved,
		roles: []models.UserRole{models.RoleAdmin, models.RoleTreasurer},
	},
	models.EventMarkReady: {
		from:  []models.RequestStatus{models.StatusPaymentVerified},
		to:    models.StatusReadyForPickup,
		roles: []models.UserRole{models.RoleAdmin, models.RoleSecretary},
	},
	models.EventRelease: {
		from:  []models.RequestStatus{models.StatusReadyForPickup},
		to:    models.StatusReleased,
		roles: []models.UserRole{models.RoleAdmin, models.RoleSecretary},
	},
}

// RequestService owns the document request lifecycle: creation with
// price snapshotting, the role-gated state machine, and deletion.
type RequestService struct {
	repo      requestStore
	barangays barangayConfigSource
	audit     auditLogger
	metrics   transitionObserver
	logger    *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, barangays barangayConfigSource, audit auditLogger, metrics transitionObserver, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:      repo,
		barangays: barangays,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
}

const trackingAttempts = 5

// Create registers a new document request for the acting resident. The
// fee is resolved from the barangay's pricing table and snapshotted onto
// the record; the tracking number is regenerated on collision.
func (s *RequestService) Create(ctx context.Context, body dto.CreateRequestBody, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleResident || actor.ResidentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only residents may submit document requests")
	}
	docType := models.DocumentType(strings.TrimSpace(body.DocumentType))
	if !docType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidDocumentType, fmt.Sprintf("unknown document type: %s", body.DocumentType))
	}
	barangay, err := s.barangays.Config(ctx, actor.BarangayID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "barangay not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load barangay")
	}
	if !barangay.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "barangay is not accepting requests")
	}
	amount, err := ResolvePrice(barangay.Pricing, docType)
	if err != nil {
		return nil, err
	}

	request := &models.DocumentRequest{
		BarangayID:   actor.BarangayID,
		ResidentID:   actor.ResidentID,
		ResidentName: actor.FullName,
		DocumentType: docType,
		Amount:       amount,
		Status:       models.StatusPending,
		Version:      1,
	}
	for attempt := 0; attempt < trackingAttempts; attempt++ {
		request.TrackingNumber = generateTrackingNumber()
		err = s.repo.Create(ctx, request)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateTracking) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document request")
		}
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate tracking number")
	}

	newValues, _ := json.Marshal(request)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestCreate,
		Resource:   "document_request",
		ResourceID: &request.ID,
		NewValues:  newValues,
	})
	return request, nil
}

// Get loads a request enforcing tenant and ownership scope. Residents
// only see their own records; staff see their barangay's.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.scopeCheck(request, actor); err != nil {
		return nil, err
	}
	return request, nil
}

// ListForResident returns a resident's own requests, newest first. Staff
// may read any resident within their barangay.
func (s *RequestService) ListForResident(ctx context.Context, residentID string, query dto.RequestQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleResident && actor.ResidentID != residentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "residents may only list their own requests")
	}
	filter := models.RequestFilter{
		ResidentID:   residentID,
		Status:       query.Status,
		DocumentType: query.DocumentType,
		Limit:        query.Limit,
		Offset:       query.Offset,
	}
	if !actor.SuperAdmin() {
		filter.BarangayID = actor.BarangayID
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document requests")
	}
	return requests, nil
}

// ListForBarangay returns a barangay's requests for staff dashboards.
func (s *RequestService) ListForBarangay(ctx context.Context, barangayID string, query dto.RequestQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Staff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff access required")
	}
	if !actor.SuperAdmin() && actor.BarangayID != barangayID {
		return nil, appErrors.ErrTenantMismatch
	}
	requests, err := s.repo.List(ctx, models.RequestFilter{
		BarangayID:   barangayID,
		Status:       query.Status,
		DocumentType: query.DocumentType,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document requests")
	}
	return requests, nil
}

// Transition fires one lifecycle event against a request. Checks run in a
// fixed order: existence, tenant scope, state, role, payload; only then is
// the conditional update attempted. A lost compare-and-swap surfaces as
// CONCURRENT_MODIFICATION without partial effects.
func (s *RequestService) Transition(ctx context.Context, id string, event models.RequestEvent, payload dto.TransitionPayload, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	rule, ok := transitionTable[event]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported event: %s", event))
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.SuperAdmin() && actor.BarangayID != request.BarangayID {
		return nil, appErrors.ErrTenantMismatch
	}
	if !statusAllowed(rule.from, request.Status) {
		s.observe(event, "invalid_transition")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s is not allowed while the request is %s", event, request.Status))
	}
	if !roleAllowed(rule.roles, actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform %s", actor.Role, event))
	}
	if event == models.EventSubmitPayment && actor.ResidentID != request.ResidentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requesting resident may submit payment")
	}

	update := repository.TransitionUpdate{
		ID:          request.ID,
		FromStatus:  request.Status,
		FromVersion: request.Version,
		ToStatus:    rule.to,
	}
	now := time.Now().UTC()
	if err := s.applyEventEffects(&update, request, event, payload, actor, now); err != nil {
		return nil, err
	}

	if err := s.repo.ApplyTransition(ctx, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe(event, "conflict")
			return nil, appErrors.ErrConcurrentModification
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	s.observe(event, "applied")

	previous := request.Status
	request.Status = update.ToStatus
	request.Version++
	if update.ApprovalDate != nil {
		request.ApprovalDate = update.ApprovalDate
	}
	if update.PaymentSubmittedDate != nil {
		request.PaymentSubmittedDate = update.PaymentSubmittedDate
	}
	if update.PaymentVerifiedDate != nil {
		request.PaymentVerifiedDate = update.PaymentVerifiedDate
	}
	if update.ReleaseDate != nil {
		request.ReleaseDate = update.ReleaseDate
	}
	if update.PaymentDetails != nil {
		request.PaymentDetails = update.PaymentDetails
	}
	if update.RejectionReason != nil {
		request.RejectionReason = update.RejectionReason
	}

	oldValues, _ := json.Marshal(map[string]interface{}{"status": previous, "version": update.FromVersion})
	newValues, _ := json.Marshal(map[string]interface{}{"status": request.Status, "version": request.Version, "event": event})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestTransition,
		Resource:   "document_request",
		ResourceID: &request.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
	return request, nil
}

// applyEventEffects validates the event payload and fills the column
// updates for the compare-and-swap. It may redirect the target state: a
// zero-amount APPROVE lands directly in Payment Verified.
func (s *RequestService) applyEventEffects(update *repository.TransitionUpdate, request *models.DocumentRequest, event models.RequestEvent, payload dto.TransitionPayload, actor *models.JWTClaims, now time.Time) error {
	switch event {
	case models.EventApprove:
		update.ApprovalDate = &now
		if request.Amount == 0 {
			update.ToStatus = models.StatusPaymentVerified
			update.PaymentVerifiedDate = &now
			update.PaymentDetails = &models.PaymentDetails{
				Method:          models.MethodFree,
				ReferenceNumber: models.FreeReferenceNumber,
				PaymentDate:     &now,
				VerifiedBy:      &actor.UserID,
				VerifiedDate:    &now,
			}
		}

	case models.EventReject:
		reason := strings.TrimSpace(payload.Reason)
		if reason == "" {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "rejection reason is required")
		}
		update.RejectionReason = &reason

	case models.EventSubmitPayment:
		if request.Amount == 0 {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "free documents do not require payment")
		}
		if !models.ValidPaymentMethod(payload.Method) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("unsupported payment method: %s", payload.Method))
		}
		reference := strings.TrimSpace(payload.ReferenceNumber)
		if reference == "" {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "payment reference number is required")
		}
		proofURL := strings.TrimSpace(payload.ProofURL)
		if proofURL == "" {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "payment proof is required")
		}
		paymentDate := now
		if payload.PaymentDate != "" {
			parsed, err := time.Parse("2006-01-02", payload.PaymentDate)
			if err != nil {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "payment date must be formatted YYYY-MM-DD")
			}
			paymentDate = parsed
		}
		update.PaymentSubmittedDate = &now
		update.PaymentDetails = &models.PaymentDetails{
			Method:          payload.Method,
			ReferenceNumber: reference,
			ProofURL:        proofURL,
			PaymentDate:     &paymentDate,
		}

	case models.EventVerifyPayment:
		if request.PaymentDetails == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "no submitted payment to verify")
		}
		details := *request.PaymentDetails
		remarks := strings.TrimSpace(payload.Remarks)
		if remarks == "" {
			remarks = "Payment verified"
		}
		details.VerifiedBy = &actor.UserID
		details.VerifiedDate = &now
		details.Remarks = &remarks
		update.PaymentVerifiedDate = &now
		update.PaymentDetails = &details

	case models.EventRejectPayment:
		remarks := strings.TrimSpace(payload.Remarks)
		if remarks == "" {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "payment rejection remarks are required")
		}
		if request.PaymentDetails == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "no submitted payment to reject")
		}
		details := *request.PaymentDetails
		details.VerifiedBy = &actor.UserID
		details.VerifiedDate = &now
		details.Remarks = &remarks
		reason := "Payment rejected: " + remarks
		update.RejectionReason = &reason
		update.PaymentDetails = &details

	case models.EventMarkReady:
		// no column effects beyond the status swap

	case models.EventRelease:
		update.ReleaseDate = &now
	}
	return nil
}

// Delete removes a request in any state. Captains and admins only.
func (s *RequestService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !roleAllowed([]models.UserRole{models.RoleAdmin, models.RoleCaptain}, actor.Role) {
		return appErrors.Clone(appErrors.ErrForbidden, "only captains and admins may delete requests")
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.SuperAdmin() && actor.BarangayID != request.BarangayID {
		return appErrors.ErrTenantMismatch
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document request")
	}
	oldValues, _ := json.Marshal(request)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestDelete,
		Resource:   "document_request",
		ResourceID: &request.ID,
		OldValues:  oldValues,
	})
	return nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.DocumentRequest, error) {
	return loadRequest(ctx, s.repo, id)
}

// loadRequest fetches a request and maps the repo sentinel to NOT_FOUND;
// anything else surfaces as an internal failure, never a missing record.
func loadRequest(ctx context.Context, repo requestStore, id string) (*models.DocumentRequest, error) {
	request, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document request")
	}
	return request, nil
}

func (s *RequestService) scopeCheck(request *models.DocumentRequest, actor *models.JWTClaims) error {
	if actor.SuperAdmin() {
		return nil
	}
	if actor.BarangayID != request.BarangayID {
		return appErrors.ErrTenantMismatch
	}
	if actor.Role == models.RoleResident && actor.ResidentID != request.ResidentID {
		return appErrors.Clone(appErrors.ErrForbidden, "residents may only view their own requests")
	}
	return nil
}

func (s *RequestService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "request-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func (s *RequestService) observe(event models.RequestEvent, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(event, outcome)
	}
}

func statusAllowed(from []models.RequestStatus, status models.RequestStatus) bool {
	for _, candidate := range from {
		if candidate == status {
			return true
		}
	}
	return false
}

func roleAllowed(roles []models.UserRole, role models.UserRole) bool {
	if role == models.RoleSuperAdmin {
		role = models.RoleAdmin
	}
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateTrackingNumber() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived suffix rather than panicking mid-request.
		return fmt.Sprintf("BRG-%06d", time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return "BRG-" + string(buf)
}
