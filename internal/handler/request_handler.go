package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, body dto.CreateRequestBody, actor *models.JWTClaims) (*models.DocumentRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentRequest, error)
	ListForResident(ctx context.Context, residentID string, query dto.RequestQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error)
	ListForBarangay(ctx context.Context, barangayID string, query dto.RequestQuery, actor *models.JWTClaims) ([]models.DocumentRequest, error)
	Transition(ctx context.Context, id string, event models.RequestEvent, payload dto.TransitionPayload, actor *models.JWTClaims) (*models.DocumentRequest, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

type receiptService interface {
	ForRequest(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.ReceiptView, error)
	RenderPDF(ctx context.Context, requestID string, actor *models.JWTClaims) ([]byte, *models.ReceiptView, error)
}

// RequestHandler exposes REST endpoints for the document request lifecycle.
type RequestHandler struct {
	service  requestService
	receipts receiptService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService, receipts receiptService) *RequestHandler {
	return &RequestHandler{service: service, receipts: receipts}
}

// Create godoc
// @Summary Submit a document request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestBody true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var body dto.CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	request, err := h.service.Create(c.Request.Context(), body, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List document requests
// @Description Staff receive their barangay's requests; residents their own.
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param documentType query string false "Document type"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := parseRequestQuery(c)

	var (
		requests []models.DocumentRequest
		err      error
	)
	if claims.Role == models.RoleResident {
		requests, err = h.service.ListForResident(c.Request.Context(), claims.ResidentID, query, claims)
	} else {
		barangayID := c.Query("barangayId")
		if barangayID == "" {
			barangayID = claims.BarangayID
		}
		requests, err = h.service.ListForBarangay(c.Request.Context(), barangayID, query, claims)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get a document request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Transition returns a handler firing the given lifecycle event. The
// seven transition routes all funnel through here; the engine decides
// whether the event is legal for the caller and the record's state.
func (h *RequestHandler) Transition(event models.RequestEvent) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload dto.TransitionPayload
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&payload); err != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
				return
			}
		}
		request, err := h.service.Transition(c.Request.Context(), c.Param("id"), event, payload, claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, request, nil)
	}
}

// Delete godoc
// @Summary Delete a document request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Receipt godoc
// @Summary Get the payment receipt for a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/receipt [get]
func (h *RequestHandler) Receipt(c *gin.Context) {
	receipt, err := h.receipts.ForRequest(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// ReceiptPDF godoc
// @Summary Download the payment receipt as PDF
// @Tags Requests
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Router /requests/{id}/receipt/pdf [get]
func (h *RequestHandler) ReceiptPDF(c *gin.Context) {
	pdf, receipt, err := h.receipts.RenderPDF(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+receipt.ReceiptNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func parseRequestQuery(c *gin.Context) dto.RequestQuery {
	query := dto.RequestQuery{}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.RequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			statuses = append(statuses, models.RequestStatus(part))
		}
		query.Status = statuses
	}
	if docType := strings.TrimSpace(c.Query("documentType")); docType != "" {
		query.DocumentType = models.DocumentType(docType)
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	return query
}
