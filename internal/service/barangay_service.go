package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

type barangayStore interface {
	Create(ctx context.Context, barangay *models.Barangay) error
	GetByID(ctx context.Context, id string) (*models.Barangay, error)
	List(ctx context.Context) ([]models.Barangay, error)
	UpdatePricing(ctx context.Context, id string, pricing models.PricingTable, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
}

type barangayCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BarangayService manages tenant configuration. Reads go through Redis
// because Config sits on the hot path of every request creation; writes
// invalidate the cached entry before returning.
type BarangayService struct {
	repo     barangayStore
	cache    barangayCache
	audit    auditLogger
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewBarangayService constructs the service.
func NewBarangayService(repo barangayStore, cache barangayCache, audit auditLogger, cacheTTL time.Duration, logger *zap.Logger) *BarangayService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BarangayService{repo: repo, cache: cache, audit: audit, cacheTTL: cacheTTL, logger: logger}
}

func barangayCacheKey(id string) string {
	return "barangay:config:" + id
}

// Config loads a barangay's configuration, cache first. Config carries no
// actor because the engine itself calls it; HTTP access goes through Get.
func (s *BarangayService) Config(ctx context.Context, barangayID string) (*models.Barangay, error) {
	if s.cache != nil {
		var cached models.Barangay
		if err := s.cache.Get(ctx, barangayCacheKey(barangayID), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("barangay cache read failed", zap.String("barangay_id", barangayID), zap.Error(err))
		}
	}
	barangay, err := s.repo.GetByID(ctx, barangayID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, barangayCacheKey(barangayID), barangay, s.cacheTTL); err != nil {
			s.logger.Warn("barangay cache write failed", zap.String("barangay_id", barangayID), zap.Error(err))
		}
	}
	return barangay, nil
}

// Get returns a barangay for the acting principal. Staff and residents may
// read their own barangay; superadmins may read any.
func (s *BarangayService) Get(ctx context.Context, barangayID string, actor *models.JWTClaims) (*models.Barangay, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.SuperAdmin() && actor.BarangayID != barangayID {
		return nil, appErrors.ErrTenantMismatch
	}
	barangay, err := s.Config(ctx, barangayID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "barangay not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load barangay")
	}
	return barangay, nil
}

// List returns all barangays. Superadmin only.
func (s *BarangayService) List(ctx context.Context, actor *models.JWTClaims) ([]models.Barangay, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.SuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "superadmin access required")
	}
	barangays, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list barangays")
	}
	return barangays, nil
}

// Create provisions a new barangay tenant. Superadmin only. A nil pricing
// table is valid; the default fee table applies until one is configured.
func (s *BarangayService) Create(ctx context.Context, body dto.CreateBarangayBody, actor *models.JWTClaims) (*models.Barangay, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.SuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "superadmin access required")
	}
	pricing, err := parsePricing(body.Pricing)
	if err != nil {
		return nil, err
	}
	barangay := &models.Barangay{
		Name:         strings.TrimSpace(body.Name),
		Address:      strings.TrimSpace(body.Address),
		Municipality: strings.TrimSpace(body.Municipality),
		Province:     strings.TrimSpace(body.Province),
		Active:       true,
		Pricing:      pricing,
	}
	if barangay.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "barangay name is required")
	}
	if err := s.repo.Create(ctx, barangay); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create barangay")
	}
	newValues, _ := json.Marshal(barangay)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionBarangayUpdate,
		Resource:   "barangay",
		ResourceID: &barangay.ID,
		NewValues:  newValues,
	})
	return barangay, nil
}

// UpdatePricing replaces the fee table. Captains and admins of the
// barangay, or superadmins. Open requests keep their snapshotted amount.
func (s *BarangayService) UpdatePricing(ctx context.Context, barangayID string, body dto.UpdatePricingBody, actor *models.JWTClaims) (*models.Barangay, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !roleAllowed([]models.UserRole{models.RoleAdmin, models.RoleCaptain}, actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only captains and admins may change pricing")
	}
	if !actor.SuperAdmin() && actor.BarangayID != barangayID {
		return nil, appErrors.ErrTenantMismatch
	}
	pricing, err := parsePricing(body.Pricing)
	if err != nil {
		return nil, err
	}
	if pricing == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pricing table is required")
	}
	current, err := s.repo.GetByID(ctx, barangayID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "barangay not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load barangay")
	}
	now := time.Now().UTC()
	if err := s.repo.UpdatePricing(ctx, barangayID, pricing, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "barangay not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pricing")
	}
	s.invalidate(ctx, barangayID)

	oldValues, _ := json.Marshal(current.Pricing)
	newValues, _ := json.Marshal(pricing)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionPricingUpdate,
		Resource:   "barangay",
		ResourceID: &barangayID,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
	current.Pricing = pricing
	current.UpdatedAt = now
	return current, nil
}

// SetActive toggles whether the barangay accepts new requests. Existing
// requests remain transitionable either way. Superadmin only.
func (s *BarangayService) SetActive(ctx context.Context, barangayID string, active bool, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.SuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "superadmin access required")
	}
	now := time.Now().UTC()
	if err := s.repo.SetActive(ctx, barangayID, active, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "barangay not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update barangay")
	}
	s.invalidate(ctx, barangayID)

	newValues, _ := json.Marshal(map[string]bool{"active": active})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionBarangayUpdate,
		Resource:   "barangay",
		ResourceID: &barangayID,
		NewValues:  newValues,
	})
	return nil
}

func (s *BarangayService) invalidate(ctx context.Context, barangayID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, barangayCacheKey(barangayID)); err != nil {
		s.logger.Warn("barangay cache invalidation failed", zap.String("barangay_id", barangayID), zap.Error(err))
	}
}

func (s *BarangayService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "barangay-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// parsePricing validates a raw fee table: every key must be a known
// document type and every amount non-negative.
func parsePricing(raw map[string]float64) (models.PricingTable, error) {
	if raw == nil {
		return nil, nil
	}
	pricing := make(models.PricingTable, len(raw))
	for name, amount := range raw {
		docType := models.DocumentType(name)
		if !docType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidDocumentType, fmt.Sprintf("unknown document type in pricing table: %s", name))
		}
		if amount < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("fee for %s must not be negative", name))
		}
		pricing[docType] = amount
	}
	return pricing, nil
}
