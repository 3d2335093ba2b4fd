package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/response"
)

type barangayService interface {
	Get(ctx context.Context, barangayID string, actor *models.JWTClaims) (*models.Barangay, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]models.Barangay, error)
	Create(ctx context.Context, body dto.CreateBarangayBody, actor *models.JWTClaims) (*models.Barangay, error)
	UpdatePricing(ctx context.Context, barangayID string, body dto.UpdatePricingBody, actor *models.JWTClaims) (*models.Barangay, error)
	SetActive(ctx context.Context, barangayID string, active bool, actor *models.JWTClaims) error
}

// BarangayHandler exposes tenant configuration endpoints.
type BarangayHandler struct {
	service barangayService
}

// NewBarangayHandler constructs the handler.
func NewBarangayHandler(service barangayService) *BarangayHandler {
	return &BarangayHandler{service: service}
}

// Get godoc
// @Summary Get barangay configuration
// @Tags Barangays
// @Produce json
// @Param id path string true "Barangay ID"
// @Success 200 {object} response.Envelope
// @Router /barangays/{id} [get]
func (h *BarangayHandler) Get(c *gin.Context) {
	barangay, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, barangay, nil)
}

// List godoc
// @Summary List barangays
// @Tags Barangays
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /barangays [get]
func (h *BarangayHandler) List(c *gin.Context) {
	barangays, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, barangays, nil)
}

// Create godoc
// @Summary Provision a barangay tenant
// @Tags Barangays
// @Accept json
// @Produce json
// @Param payload body dto.CreateBarangayBody true "Barangay payload"
// @Success 201 {object} response.Envelope
// @Router /barangays [post]
func (h *BarangayHandler) Create(c *gin.Context) {
	var body dto.CreateBarangayBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid barangay payload"))
		return
	}
	barangay, err := h.service.Create(c.Request.Context(), body, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, barangay)
}

// Pricing godoc
// @Summary Get the barangay fee table
// @Tags Barangays
// @Produce json
// @Param id path string true "Barangay ID"
// @Success 200 {object} response.Envelope
// @Router /barangays/{id}/pricing [get]
func (h *BarangayHandler) Pricing(c *gin.Context) {
	barangay, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	pricing := barangay.Pricing
	if pricing == nil {
		pricing = models.DefaultPricing
	}
	response.JSON(c, http.StatusOK, pricing, nil)
}

// UpdatePricing godoc
// @Summary Replace the barangay fee table
// @Tags Barangays
// @Accept json
// @Produce json
// @Param id path string true "Barangay ID"
// @Param payload body dto.UpdatePricingBody true "Pricing payload"
// @Success 200 {object} response.Envelope
// @Router /barangays/{id}/pricing [put]
func (h *BarangayHandler) UpdatePricing(c *gin.Context) {
	var body dto.UpdatePricingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid pricing payload"))
		return
	}
	barangay, err := h.service.UpdatePricing(c.Request.Context(), c.Param("id"), body, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, barangay, nil)
}

// SetActive godoc
// @Summary Toggle whether a barangay accepts new requests
// @Tags Barangays
// @Accept json
// @Param id path string true "Barangay ID"
// @Param payload body dto.SetActiveBody true "Active flag"
// @Success 204
// @Router /barangays/{id}/active [patch]
func (h *BarangayHandler) SetActive(c *gin.Context) {
	var body dto.SetActiveBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active flag is required"))
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *body.Active, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
