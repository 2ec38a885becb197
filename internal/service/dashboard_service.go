package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/dto"
	"github.com/fisiohome/fisiohome-api/internal/models"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, filter models.AppointmentFilter) (map[string]int, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
}

type roleCounter interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DashboardService assembles summary counts scoped to the caller. Results
// are cached per user when Redis is configured.
type DashboardService struct {
	appointments  statusCounter
	users         roleCounter
	notifications unreadCounter
	cache         *CacheService
	logger        *zap.Logger
}

func NewDashboardService(appointments statusCounter, users roleCounter, notifications unreadCounter, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		appointments:  appointments,
		users:         users,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
	}
}

// Summary returns the dashboard counts for actor. The second return value
// reports whether the payload came from cache.
func (s *DashboardService) Summary(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:summary:%s", actor.UserID)

	var cached dto.DashboardSummary
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	filter := models.AppointmentFilter{}
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
	case models.RoleTherapist:
		filter.TherapistID = actor.UserID
	}

	byStatus, err := s.appointments.CountByStatus(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	todayFilter := filter
	todayFilter.Date = time.Now().Format("2006-01-02")
	todayFilter.Page = 1
	todayFilter.PageSize = 1
	_, upcomingToday, err := s.appointments.List(ctx, todayFilter)
	if err != nil {
		return nil, false, err
	}

	summary := &dto.DashboardSummary{
		TotalAppointments: total,
		ByStatus:          byStatus,
		UpcomingToday:     upcomingToday,
	}

	if unread, err := s.notifications.CountUnread(ctx, actor.UserID); err != nil {
		s.logger.Warn("unread count failed", zap.String("user_id", actor.UserID), zap.Error(err))
	} else {
		summary.UnreadNotifications = unread
	}

	if actor.IsAdmin() {
		if patients, err := s.users.CountByRole(ctx, models.RolePatient); err == nil {
			summary.TotalPatients = patients
		}
		if therapists, err := s.users.CountByRole(ctx, models.RoleTherapist); err == nil {
			summary.TotalTherapists = therapists
		}
	}

	s.cache.SetJSON(ctx, cacheKey, summary)
	return summary, false, nil
}

// InvalidateFor drops cached summaries touched by a change to an
// appointment between patientID and therapistID.
func (s *DashboardService) InvalidateFor(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:summary:%s", id))
	}
}
