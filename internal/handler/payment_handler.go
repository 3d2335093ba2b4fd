package handler

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/response"
)

type paymentService interface {
	Upload(ctx context.Context, requestID string, data []byte, actor *models.JWTClaims) (*dto.ProofUploadResult, error)
	ProofLink(ctx context.Context, requestID string, actor *models.JWTClaims) (*dto.ProofUploadResult, error)
	Resolve(token string) (*os.File, string, error)
}

// PaymentHandler exposes proof upload and download endpoints.
type PaymentHandler struct {
	service  paymentService
	maxBytes int64
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(service paymentService, maxBytes int64) *PaymentHandler {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &PaymentHandler{service: service, maxBytes: maxBytes}
}

// UploadProof godoc
// @Summary Upload a payment proof image
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Param requestId formData string true "Request ID"
// @Param proof formData file true "Proof image"
// @Success 201 {object} response.Envelope
// @Router /payments/proof [post]
func (h *PaymentHandler) UploadProof(c *gin.Context) {
	requestID := c.PostForm("requestId")
	if requestID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requestId is required"))
		return
	}
	fileHeader, err := c.FormFile("proof")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "proof file is required"))
		return
	}
	if fileHeader.Size > h.maxBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "proof file is too large"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	result, err := h.service.Upload(c.Request.Context(), requestID, data, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ProofLink godoc
// @Summary Issue a signed download link for a request's payment proof
// @Tags Payments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/proof [get]
func (h *PaymentHandler) ProofLink(c *gin.Context) {
	result, err := h.service.ProofLink(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadProof godoc
// @Summary Download a payment proof via signed token
// @Tags Payments
// @Produce image/jpeg
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /payments/proof/download [get]
func (h *PaymentHandler) DownloadProof(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, contentType, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read proof"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
