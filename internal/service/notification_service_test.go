package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type mockNotificationRepo struct {
	notifications []models.Notification
	markReadOK    bool

	lastFilter       models.NotificationFilter
	lastMarkReadUser string
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.lastFilter = filter
	return m.notifications, len(m.notifications), nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	m.lastMarkReadUser = userID
	return m.markReadOK, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func TestNotificationList_ScopedToActor(t *testing.T) {
	repo := &mockNotificationRepo{
		notifications: []models.Notification{{ID: "ntf-1", UserID: "pat-1"}},
	}
	svc := NewNotificationService(repo, nil)

	_, pagination, err := svc.List(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", repo.lastFilter.UserID)
	assert.True(t, repo.lastFilter.UnreadOnly)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestNotificationMarkRead_OwnershipEnforcedByQuery(t *testing.T) {
	repo := &mockNotificationRepo{markReadOK: false}
	svc := NewNotificationService(repo, nil)

	err := svc.MarkRead(context.Background(), models.Actor{UserID: "pat-2", Role: models.RolePatient}, "ntf-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "pat-2", repo.lastMarkReadUser)

	repo.markReadOK = true
	assert.NoError(t, svc.MarkRead(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, "ntf-1"))
}

func TestNotificationUnreadCount(t *testing.T) {
	repo := &mockNotificationRepo{
		notifications: []models.Notification{
			{ID: "ntf-1", Read: false},
			{ID: "ntf-2", Read: true},
			{ID: "ntf-3", Read: false},
		},
	}
	svc := NewNotificationService(repo, nil)

	count, err := svc.UnreadCount(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
