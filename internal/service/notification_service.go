package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// NotificationService lets recipients read their notification feed.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService instantiates NotificationService.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	filter := models.NotificationFilter{
		UserID:     actor.UserID,
		UnreadOnly: unreadOnly,
		Page:       page,
		PageSize:   pageSize,
	}
	notifications, total, err := s.repo.ListByUser(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead marks one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	updated, err := s.repo.MarkRead(ctx, id, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// UnreadCount returns the actor's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	total, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return total, nil
}
