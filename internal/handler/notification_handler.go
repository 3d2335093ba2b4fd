package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/pkg/response"
)

type notificationService interface {
	Feed(ctx context.Context, actor *models.JWTClaims) (*dto.NotificationFeed, error)
}

// NotificationHandler serves the resident alert feed.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Feed godoc
// @Summary Get the resident's notification feed and badge count
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Feed(c *gin.Context) {
	feed, err := h.service.Feed(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feed, nil)
}
