package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

type barangayRepoStub struct {
	barangays map[string]*models.Barangay
	getCalls  int
}

func newBarangayRepoStub() *barangayRepoStub {
	return &barangayRepoStub{barangays: make(map[string]*models.Barangay)}
}

func (b *barangayRepoStub) Create(ctx context.Context, barangay *models.Barangay) error {
	if barangay.ID == "" {
		barangay.ID = "brgy-new"
	}
	copy := *barangay
	b.barangays[barangay.ID] = &copy
	return nil
}

func (b *barangayRepoStub) GetByID(ctx context.Context, id string) (*models.Barangay, error) {
	b.getCalls++
	if brgy, ok := b.barangays[id]; ok {
		copy := *brgy
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (b *barangayRepoStub) List(ctx context.Context) ([]models.Barangay, error) {
	result := make([]models.Barangay, 0, len(b.barangays))
	for _, brgy := range b.barangays {
		result = append(result, *brgy)
	}
	return result, nil
}

func (b *barangayRepoStub) UpdatePricing(ctx context.Context, id string, pricing models.PricingTable, updatedAt time.Time) error {
	brgy, ok := b.barangays[id]
	if !ok {
		return sql.ErrNoRows
	}
	brgy.Pricing = pricing
	brgy.UpdatedAt = updatedAt
	return nil
}

func (b *barangayRepoStub) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	brgy, ok := b.barangays[id]
	if !ok {
		return sql.ErrNoRows
	}
	brgy.Active = active
	brgy.UpdatedAt = updatedAt
	return nil
}

type cacheStub struct {
	entries map[string][]byte
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.entries, key)
	return nil
}

func superActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin, BarangayID: "hq"}
}

func TestBarangayServiceConfigCaches(t *testing.T) {
	repo := newBarangayRepoStub()
	repo.barangays["brgy-1"] = activeBarangay("brgy-1", models.PricingTable{models.DocResidency: 80})
	cache := newCacheStub()
	svc := NewBarangayService(repo, cache, &auditStub{}, time.Minute, nil)

	first, err := svc.Config(context.Background(), "brgy-1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, first.Pricing[models.DocResidency])

	second, err := svc.Config(context.Background(), "brgy-1")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 1, repo.getCalls, "second read must come from cache")
}

func TestBarangayServiceGetScope(t *testing.T) {
	repo := newBarangayRepoStub()
	repo.barangays["brgy-1"] = activeBarangay("brgy-1", nil)
	svc := NewBarangayService(repo, nil, &auditStub{}, time.Minute, nil)

	_, err := svc.Get(context.Background(), "brgy-1", staffActor(models.RoleSecretary, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	brgy, err := svc.Get(context.Background(), "brgy-1", staffActor(models.RoleSecretary, "brgy-1"))
	require.NoError(t, err)
	assert.Equal(t, "brgy-1", brgy.ID)

	_, err = svc.Get(context.Background(), "missing", superActor())
	requireAppErr(t, err, appErrors.ErrNotFound.Code)
}

func TestBarangayServiceCreate(t *testing.T) {
	repo := newBarangayRepoStub()
	audit := &auditStub{}
	svc := NewBarangayService(repo, nil, audit, time.Minute, nil)

	_, err := svc.Create(context.Background(), dto.CreateBarangayBody{Name: "Poblacion"}, staffActor(models.RoleAdmin, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	brgy, err := svc.Create(context.Background(), dto.CreateBarangayBody{
		Name:         "Poblacion",
		Address:      "123 Rizal St",
		Municipality: "Iloilo City",
		Province:     "Iloilo",
		Pricing:      map[string]float64{"Barangay Clearance": 40},
	}, superActor())
	require.NoError(t, err)
	assert.True(t, brgy.Active)
	assert.Equal(t, 40.0, brgy.Pricing[models.DocBarangayClearance])
	require.Len(t, audit.logs, 1)
}

func TestBarangayServiceUpdatePricing(t *testing.T) {
	repo := newBarangayRepoStub()
	repo.barangays["brgy-1"] = activeBarangay("brgy-1", models.PricingTable{models.DocBarangayClearance: 50})
	cache := newCacheStub()
	audit := &auditStub{}
	svc := NewBarangayService(repo, cache, audit, time.Minute, nil)
	captain := staffActor(models.RoleCaptain, "brgy-1")

	// warm the cache, then make sure the write clears it
	_, err := svc.Config(context.Background(), "brgy-1")
	require.NoError(t, err)

	_, err = svc.UpdatePricing(context.Background(), "brgy-1", dto.UpdatePricingBody{
		Pricing: map[string]float64{"Voter Certificate": 10},
	}, captain)
	requireAppErr(t, err, appErrors.ErrInvalidDocumentType.Code)

	_, err = svc.UpdatePricing(context.Background(), "brgy-1", dto.UpdatePricingBody{
		Pricing: map[string]float64{"Barangay Clearance": -5},
	}, captain)
	requireAppErr(t, err, appErrors.ErrValidation.Code)

	_, err = svc.UpdatePricing(context.Background(), "brgy-1", dto.UpdatePricingBody{
		Pricing: map[string]float64{"Barangay Clearance": 65},
	}, staffActor(models.RoleTreasurer, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	_, err = svc.UpdatePricing(context.Background(), "brgy-1", dto.UpdatePricingBody{
		Pricing: map[string]float64{"Barangay Clearance": 65},
	}, staffActor(models.RoleCaptain, "brgy-2"))
	requireAppErr(t, err, appErrors.ErrTenantMismatch.Code)

	updated, err := svc.UpdatePricing(context.Background(), "brgy-1", dto.UpdatePricingBody{
		Pricing: map[string]float64{"Barangay Clearance": 65},
	}, captain)
	require.NoError(t, err)
	assert.Equal(t, 65.0, updated.Pricing[models.DocBarangayClearance])
	assert.Contains(t, cache.deleted, barangayCacheKey("brgy-1"))
	require.NotEmpty(t, audit.logs)
	assert.Equal(t, models.AuditActionPricingUpdate, audit.logs[len(audit.logs)-1].Action)
}

func TestBarangayServiceSetActive(t *testing.T) {
	repo := newBarangayRepoStub()
	repo.barangays["brgy-1"] = activeBarangay("brgy-1", nil)
	cache := newCacheStub()
	svc := NewBarangayService(repo, cache, &auditStub{}, time.Minute, nil)

	err := svc.SetActive(context.Background(), "brgy-1", false, staffActor(models.RoleCaptain, "brgy-1"))
	requireAppErr(t, err, appErrors.ErrForbidden.Code)

	err = svc.SetActive(context.Background(), "brgy-1", false, superActor())
	require.NoError(t, err)
	assert.False(t, repo.barangays["brgy-1"].Active)
	assert.Contains(t, cache.deleted, barangayCacheKey("brgy-1"))

	err = svc.SetActive(context.Background(), "missing", false, superActor())
	requireAppErr(t, err, appErrors.ErrNotFound.Code)
}
