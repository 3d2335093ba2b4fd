package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/brgy-docs-api/internal/dto"
	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
)

// notificationPriority orders the feed: pickup alerts first, then
// preparation updates, then payment calls to action, then rejections.
var notificationPriority = map[models.NotificationKind]int{
	models.NotifyReadyForPickup:  0,
	models.NotifyBeingPrepared:   1,
	models.NotifyPaymentRequired: 2,
	models.NotifyRejected:        3,
}

// NotificationService projects resident alerts from request state.
// Nothing is stored; the feed is recomputed on every read.
type NotificationService struct {
	repo requestStore
}

// NewNotificationService constructs the service.
func NewNotificationService(repo requestStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// Feed returns the acting resident's alerts and badge count.
func (s *NotificationService) Feed(ctx context.Context, actor *models.JWTClaims) (*dto.NotificationFeed, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleResident || actor.ResidentID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notifications are a resident feature")
	}
	requests, err := s.listAll(ctx, models.RequestFilter{
		BarangayID: actor.BarangayID,
		ResidentID: actor.ResidentID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests")
	}
	notifications := Project(requests)
	return &dto.NotificationFeed{
		Count:         Count(requests),
		Notifications: notifications,
	}, nil
}

// feedPageSize is the repository's maximum page size. The feed walks
// every page: a resident's badge count covers their full history, not
// just the first page.
const feedPageSize = 200

func (s *NotificationService) listAll(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, error) {
	filter.Limit = feedPageSize
	var all []models.DocumentRequest
	for {
		filter.Offset = len(all)
		page, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < feedPageSize {
			return all, nil
		}
	}
}

// Project derives alerts from request state. Released requests and free
// documents sitting in Approved produce nothing.
func Project(requests []models.DocumentRequest) []models.Notification {
	notifications := make([]models.Notification, 0, len(requests))
	for _, request := range requests {
		notification, ok := projectOne(request)
		if !ok {
			continue
		}
		notifications = append(notifications, notification)
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notificationPriority[notifications[i].Kind] < notificationPriority[notifications[j].Kind]
	})
	return notifications
}

// Count is the badge counter: requests awaiting pickup, payment, or
// carrying a rejection the resident has not acted on.
func Count(requests []models.DocumentRequest) int {
	count := 0
	for _, request := range requests {
		switch request.Status {
		case models.StatusReadyForPickup, models.StatusRejected:
			count++
		case models.StatusApproved:
			if request.Amount > 0 {
				count++
			}
		}
	}
	return count
}

func projectOne(request models.DocumentRequest) (models.Notification, bool) {
	base := models.Notification{
		RequestID:      request.ID,
		TrackingNumber: request.TrackingNumber,
		DocumentType:   request.DocumentType,
		Amount:         request.Amount,
	}
	switch request.Status {
	case models.StatusReadyForPickup:
		base.Kind = models.NotifyReadyForPickup
		base.ActionRequired = true
		base.Message = fmt.Sprintf("Your %s (%s) is ready for pickup at the barangay hall.", request.DocumentType, request.TrackingNumber)
		return base, true
	case models.StatusPaymentVerified:
		base.Kind = models.NotifyBeingPrepared
		base.Message = fmt.Sprintf("Payment confirmed. Your %s (%s) is being prepared.", request.DocumentType, request.TrackingNumber)
		return base, true
	case models.StatusApproved:
		if request.Amount <= 0 {
			return models.Notification{}, false
		}
		base.Kind = models.NotifyPaymentRequired
		base.ActionRequired = true
		base.Message = fmt.Sprintf("Your %s (%s) was approved. Pay PHP %.2f to proceed.", request.DocumentType, request.TrackingNumber, request.Amount)
		return base, true
	case models.StatusRejected:
		base.Kind = models.NotifyRejected
		base.Message = fmt.Sprintf("Your %s request (%s) was rejected.", request.DocumentType, request.TrackingNumber)
		if request.RejectionReason != nil && *request.RejectionReason != "" {
			base.Message = fmt.Sprintf("Your %s request (%s) was rejected: %s", request.DocumentType, request.TrackingNumber, *request.RejectionReason)
		}
		return base, true
	}
	return models.Notification{}, false
}
