package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type appointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	HasConflict(ctx context.Context, therapistID, date, timeOfDay string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, notes *string) error
}

type therapistReader interface {
	FindByID(ctx context.Context, id string) (*models.Therapist, error)
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// CreateAppointmentRequest describes payload for booking a home visit.
// PatientID is honored for admin callers only; patients always book for
// themselves.
type CreateAppointmentRequest struct {
	PatientID       string   `json:"patient_id"`
	TherapistID     string   `json:"therapist_id" validate:"required"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string   `json:"time" validate:"required,datetime=15:04"`
	ServiceType     string   `json:"service_type" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
	Notes           string   `json:"notes"`
	Address         string   `json:"address" validate:"required"`
	TotalCost       *float64 `json:"total_cost" validate:"omitempty,gt=0"`
}

// UpdateStatusRequest drives a lifecycle transition.
type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

// AppointmentService coordinates the booking lifecycle: conflict
// detection, cost computation, and notification/audit side effects.
type AppointmentService struct {
	repo            appointmentRepository
	therapists      therapistReader
	notifications   notificationWriter
	audits          auditWriter
	validator       *validator.Validate
	logger          *zap.Logger
	defaultDuration int
}

// NewAppointmentService instantiates AppointmentService.
func NewAppointmentService(repo appointmentRepository, therapists therapistReader, notifications notificationWriter, audits auditWriter, validate *validator.Validate, logger *zap.Logger, defaultDuration int) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDuration <= 0 {
		defaultDuration = 60
	}
	return &AppointmentService{
		repo:            repo,
		therapists:      therapists,
		notifications:   notifications,
		audits:          audits,
		validator:       validate,
		logger:          logger,
		defaultDuration: defaultDuration,
	}
}

// Create books a new appointment with status scheduled. Total cost is
// computed from the therapist's hourly rate and the visit duration unless
// explicitly supplied; the computation happens once, at creation.
func (s *AppointmentService) Create(ctx context.Context, actor models.Actor, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	patientID := req.PatientID
	switch actor.Role {
	case models.RolePatient:
		patientID = actor.UserID
	case models.RoleAdmin:
		if patientID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "patient_id is required")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only patients and admins can book appointments")
	}

	therapist, err := s.therapists.FindByID(ctx, req.TherapistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load therapist")
	}
	if !therapist.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist is not active")
	}

	// Optimistic pre-check. The partial unique index still guards the
	// race between this check and the insert below.
	conflict, err := s.repo.HasConflict(ctx, req.TherapistID, req.Date, req.Time)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrSlotTaken, fmt.Sprintf("therapist is already booked on %s at %s", req.Date, req.Time))
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.defaultDuration
	}
	totalCost := therapist.HourlyRate * float64(duration) / 60
	if req.TotalCost != nil {
		totalCost = *req.TotalCost
	}

	appointment := models.Appointment{
		PatientID:       patientID,
		TherapistID:     req.TherapistID,
		Date:            req.Date,
		Time:            req.Time,
		ServiceType:     req.ServiceType,
		Status:          models.StatusScheduled,
		DurationMinutes: duration,
		Notes:           req.Notes,
		Address:         req.Address,
		TotalCost:       totalCost,
		PaymentStatus:   "unpaid",
	}
	if err := s.repo.Create(ctx, &appointment); err != nil {
		// The repository already translated unique violations into the
		// slot conflict error.
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.notifyCreated(ctx, &appointment, therapist.FullName)

	return &appointment, nil
}

// notifyCreated emits the two creation notifications. Failures are logged
// and swallowed; an undelivered notification never fails a booking.
func (s *AppointmentService) notifyCreated(ctx context.Context, appointment *models.Appointment, therapistName string) {
	when := fmt.Sprintf("%s at %s", appointment.Date, appointment.Time)

	toTherapist := models.Notification{
		UserID:        appointment.TherapistID,
		Title:         "New appointment",
		Message:       fmt.Sprintf("You have a new %s appointment scheduled for %s.", appointment.ServiceType, when),
		Type:          models.NotificationTypeNewAppointment,
		AppointmentID: &appointment.ID,
	}
	if err := s.notifications.Create(ctx, &toTherapist); err != nil {
		s.logger.Warn("failed to notify therapist of new appointment",
			zap.String("appointment_id", appointment.ID), zap.Error(err))
	}

	toPatient := models.Notification{
		UserID:        appointment.PatientID,
		Title:         "Appointment confirmed",
		Message:       fmt.Sprintf("Your %s appointment with %s is booked for %s.", appointment.ServiceType, therapistName, when),
		Type:          models.NotificationTypeAppointmentConfirmed,
		AppointmentID: &appointment.ID,
	}
	if err := s.notifications.Create(ctx, &toPatient); err != nil {
		s.logger.Warn("failed to notify patient of new appointment",
			zap.String("appointment_id", appointment.ID), zap.Error(err))
	}
}

// List returns appointments visible to the actor. Non-admin callers are
// always scoped to their own rows regardless of the supplied filter.
func (s *AppointmentService) List(ctx context.Context, actor models.Actor, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
		filter.TherapistID = ""
	case models.RoleTherapist:
		filter.TherapistID = actor.UserID
		filter.PatientID = ""
	case models.RoleAdmin:
		// unrestricted
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	appointments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return appointments, pagination, nil
}

// Get returns a single appointment when the actor may view it.
func (s *AppointmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if !IsAuthorized(actor, ActionAppointmentView, appointment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this appointment")
	}
	return appointment, nil
}

// UpdateStatus drives a lifecycle transition. Any authorized actor may
// set any recognized status from a non-terminal one, backwards moves
// included. Re-setting the current status is a silent no-op; moving away
// from a terminal status is rejected. One audit entry records each real
// transition.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req UpdateStatusRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	newStatus := models.AppointmentStatus(req.Status)
	if !newStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unrecognized status %q", req.Status))
	}

	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if !IsAuthorized(actor, ActionAppointmentUpdateStatus, appointment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this appointment")
	}

	oldStatus := appointment.Status
	if newStatus == oldStatus {
		// Idempotent repeat: no audit entry, but supplied notes still
		// replace the stored notes.
		if req.Notes != nil {
			if err := s.repo.UpdateStatus(ctx, id, oldStatus, req.Notes); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment notes")
			}
			appointment.Notes = *req.Notes
			appointment.UpdatedAt = time.Now().UTC()
		}
		return appointment, nil
	}
	if oldStatus.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("appointment is already %s", oldStatus))
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus, req.Notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}

	appointment.Status = newStatus
	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}
	appointment.UpdatedAt = time.Now().UTC()

	oldValue, _ := json.Marshal(map[string]string{"status": string(oldStatus)})
	newValue, _ := json.Marshal(map[string]string{"status": string(newStatus)})
	if err := s.audits.Create(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionStatusChange,
		Resource:   models.ResourceAppointment,
		ResourceID: &appointment.ID,
		OldValues:  oldValue,
		NewValues:  newValue,
	}); err != nil {
		s.logger.Warn("failed to record status change audit log",
			zap.String("appointment_id", appointment.ID), zap.Error(err))
	}

	return appointment, nil
}
