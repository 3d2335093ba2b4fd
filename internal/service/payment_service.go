package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/storage"
)

type proofStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type proofObserver interface {
	ObserveProofUpload(bytes int)
}

var proofExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PaymentService handles payment proof images: validated upload to local
// storage and signed, time-limited download links for verifiers.
type PaymentService struct {
	requests requestStore
	store    proofStorage
	signer   *storage.SignedURLSigner
	audit    auditLogger
	metrics  proofObserver
	maxBytes int64
	allowed  map[string]bool
	logger   *zap.Logger
}

// NewPaymentService constructs the service. allowedMIMEs defaults to the
// image types the original mobile clients produce.
func NewPaymentService(requests requestStore, store proofStorage, signer *storage.SignedURLSigner, audit auditLogger, metrics proofObserver, maxBytes int64, allowedMIMEs []string, logger *zap.Logger) *PaymentService {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	if len(allowedMIMEs) == 0 {
		allowedMIMEs = []string{"image/jpeg", "image/png", "image/webp"}
	}
	allowed := make(map[string]bool, len(allowedMIMEs))
	for _, mime := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(mime))] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		requests: requests,
		store:    store,
		signer:   signer,
		audit:    audit,
		metrics:  metrics,
		maxBytes: maxBytes,
		allowed:  allowed,
		logger:   logger,
	}
}

// Upload stores a proof image for the acting resident's request. The
// content type is sniffed from the bytes, never trusted from the client.
func (s *PaymentService) Upload(ctx context.Context, requestID string, data []byte, actor *models.JWTClaims) (*dto.ProofUploadResult, error) {
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
	if actor.Role != models.RoleResident || actor.ResidentID != request.ResidentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requesting resident may upload payment proof")
	}
	if request.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "payment proof is only accepted while the request awaits payment")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proof file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("proof file exceeds the %d byte limit", s.maxBytes))
	}
	contentType := sniffContentType(data)
	if !s.allowed[contentType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported proof content type: %s", contentType))
	}

	relPath := path.Join("payment-proofs", request.BarangayID, request.ID, uuid.NewString()+proofExtensions[contentType])
	if _, err := s.store.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment proof")
	}

	token, expiresAt, err := s.signer.Generate(request.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign proof link")
	}
	if s.metrics != nil {
		s.metrics.ObserveProofUpload(len(data))
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionProofUpload,
		Resource:   "payment_proof",
		ResourceID: &request.ID,
		NewValues:  []byte(fmt.Sprintf(`{"path":%q,"contentType":%q,"bytes":%d}`, relPath, contentType, len(data))),
	})

	return &dto.ProofUploadResult{
		RequestID:   request.ID,
		ProofURL:    relPath,
		DownloadURL: token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// ProofLink issues a fresh signed download token for the proof attached to
// a submitted payment. Verifying staff and the owning resident only.
func (s *PaymentService) ProofLink(ctx context.Context, requestID string, actor *models.JWTClaims) (*dto.ProofUploadResult, error) {
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
	isOwner := actor.Role == models.RoleResident && actor.ResidentID == request.ResidentID
	isVerifier := roleAllowed([]models.UserRole{models.RoleAdmin, models.RoleTreasurer, models.RoleCaptain, models.RoleSecretary}, actor.Role)
	if !isOwner && !isVerifier {
		return nil, appErrors.ErrForbidden
	}
	if request.PaymentDetails == nil || request.PaymentDetails.ProofURL == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no payment proof on record")
	}
	token, expiresAt, err := s.signer.Generate(request.ID, request.PaymentDetails.ProofURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign proof link")
	}
	return &dto.ProofUploadResult{
		RequestID:   request.ID,
		ProofURL:    request.PaymentDetails.ProofURL,
		DownloadURL: token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Resolve validates a signed token and opens the referenced proof file.
// The caller owns the returned handle.
func (s *PaymentService) Resolve(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired proof link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "payment proof not found")
	}
	contentType := "application/octet-stream"
	for mime, ext := range proofExtensions {
		if strings.HasSuffix(relPath, ext) {
			contentType = mime
		}
	}
	return file, contentType, nil
}

func (s *PaymentService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "payment-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func sniffContentType(data []byte) string {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	detected := http.DetectContentType(sample)
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	return strings.ToLower(strings.TrimSpace(detected))
}
