package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type availabilityRepository interface {
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	ListByTherapist(ctx context.Context, therapistID string) ([]models.AvailabilityWindow, error)
	ListActiveForDay(ctx context.Context, therapistID string, dayOfWeek int) ([]models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	Delete(ctx context.Context, id string) error
}

type bookedTimesReader interface {
	BookedTimes(ctx context.Context, therapistID, date string) ([]string, error)
}

// CreateWindowRequest describes payload for adding a weekly window.
type CreateWindowRequest struct {
	TherapistID string `json:"therapist_id" validate:"required"`
	DayOfWeek   int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

// UpdateWindowRequest modifies an existing window.
type UpdateWindowRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Active    *bool  `json:"active"`
}

// AvailabilityService manages weekly windows and derives bookable slots.
type AvailabilityService struct {
	repo         availabilityRepository
	appointments bookedTimesReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, appointments bookedTimesReader, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, appointments: appointments, validator: validate, logger: logger}
}

// AvailableSlots computes the bookable start times for a therapist on a
// calendar date. Each active window for the date's weekday yields a single
// slot at the window's start time; times held by a non-terminal
// appointment are excluded. The result is ordered ascending and may be
// empty, never an error, when no windows match.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, therapistID, date string) ([]models.TimeSlot, error) {
	day, err := dayOfWeek(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	windows, err := s.repo.ListActiveForDay(ctx, therapistID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	if len(windows) == 0 {
		return []models.TimeSlot{}, nil
	}

	booked, err := s.appointments.BookedTimes(ctx, therapistID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked times")
	}
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	slots := make([]models.TimeSlot, 0, len(windows))
	for _, window := range windows {
		if _, held := taken[window.StartTime]; held {
			continue
		}
		slots = append(slots, models.TimeSlot{Time: window.StartTime, WindowEnd: window.EndTime})
	}
	return slots, nil
}

// ListWindows returns all windows for a therapist, including inactive ones.
func (s *AvailabilityService) ListWindows(ctx context.Context, therapistID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.repo.ListByTherapist(ctx, therapistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

// CreateWindow adds a weekly window for a therapist. Overlap with existing
// windows is intentionally not checked.
func (s *AvailabilityService) CreateWindow(ctx context.Context, actor models.Actor, req CreateWindowRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !IsAuthorized(actor, ActionAvailabilityManage, req.TherapistID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot manage another therapist's availability")
	}

	window := models.AvailabilityWindow{
		TherapistID: req.TherapistID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Active:      true,
	}
	if err := s.repo.Create(ctx, &window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	return &window, nil
}

// UpdateWindow modifies an existing window.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, actor models.Actor, id string, req UpdateWindowRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if !IsAuthorized(actor, ActionAvailabilityManage, window.TherapistID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot manage another therapist's availability")
	}

	window.DayOfWeek = req.DayOfWeek
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	if req.Active != nil {
		window.Active = *req.Active
	}
	if err := s.repo.Update(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}
	return window, nil
}

// DeleteWindow removes a window permanently.
func (s *AvailabilityService) DeleteWindow(ctx context.Context, actor models.Actor, id string) error {
	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if !IsAuthorized(actor, ActionAvailabilityManage, window.TherapistID) {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot manage another therapist's availability")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	return nil
}

// dayOfWeek maps a YYYY-MM-DD date to its civil weekday, 0=Sunday.
func dayOfWeek(date string) (int, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

func validateTimeRange(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	if !et.After(st) {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return nil
}
