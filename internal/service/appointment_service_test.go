package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type mockAppointmentRepo struct {
	createFn      func(ctx context.Context, appointment *models.Appointment) error
	findByIDFn    func(ctx context.Context, id string) (*models.Appointment, error)
	listFn        func(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	hasConflictFn func(ctx context.Context, therapistID, date, timeOfDay string) (bool, error)
	updateFn      func(ctx context.Context, id string, status models.AppointmentStatus, notes *string) error

	created       []*models.Appointment
	updateCalls   int
	lastListInput models.AppointmentFilter
}

func (m *mockAppointmentRepo) Create(ctx context.Context, appointment *models.Appointment) error {
	m.created = append(m.created, appointment)
	if m.createFn != nil {
		return m.createFn(ctx, appointment)
	}
	appointment.ID = "apt-1"
	return nil
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentRepo) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	m.lastListInput = filter
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []models.Appointment{}, 0, nil
}

func (m *mockAppointmentRepo) HasConflict(ctx context.Context, therapistID, date, timeOfDay string) (bool, error) {
	if m.hasConflictFn != nil {
		return m.hasConflictFn(ctx, therapistID, date, timeOfDay)
	}
	return false, nil
}

func (m *mockAppointmentRepo) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, notes *string) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, id, status, notes)
	}
	return nil
}

type mockTherapistReader struct {
	therapist *models.Therapist
	err       error
}

func (m *mockTherapistReader) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.therapist, nil
}

type mockNotificationWriter struct {
	created []*models.Notification
	err     error
}

func (m *mockNotificationWriter) Create(ctx context.Context, notification *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, notification)
	return nil
}

type mockAuditWriter struct {
	entries []*models.AuditLog
	err     error
}

func (m *mockAuditWriter) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func activeTherapist() *models.Therapist {
	return &models.Therapist{
		ID:             "th-1",
		FullName:       "Dr. Sarah",
		Active:         true,
		Specialization: "Ortopedi",
		HourlyRate:     200000,
		Available:      true,
	}
}

func bookingRequest() CreateAppointmentRequest {
	return CreateAppointmentRequest{
		TherapistID: "th-1",
		Date:        "2026-09-15",
		Time:        "10:00",
		ServiceType: "Ortopedi",
		Address:     "Jl. Sudirman No. 1",
	}
}

func newTestAppointmentService(repo *mockAppointmentRepo, therapists *mockTherapistReader, notifications *mockNotificationWriter, audits *mockAuditWriter) *AppointmentService {
	return NewAppointmentService(repo, therapists, notifications, audits, nil, nil, 60)
}

func TestCreateAppointment_ComputesCostFromHourlyRate(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		want     float64
	}{
		{name: "default hour", duration: 0, want: 200000},
		{name: "forty five minutes", duration: 45, want: 150000},
		{name: "ninety minutes", duration: 90, want: 300000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAppointmentRepo{}
			svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, &mockNotificationWriter{}, &mockAuditWriter{})

			req := bookingRequest()
			req.DurationMinutes = tt.duration

			appointment, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, appointment.TotalCost)
			assert.Equal(t, models.StatusScheduled, appointment.Status)
		})
	}
}

func TestCreateAppointment_ExplicitCostWins(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, &mockNotificationWriter{}, &mockAuditWriter{})

	cost := 175000.0
	req := bookingRequest()
	req.TotalCost = &cost

	appointment, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, req)
	require.NoError(t, err)
	assert.Equal(t, 175000.0, appointment.TotalCost)
}

func TestCreateAppointment_NotifiesBothParties(t *testing.T) {
	repo := &mockAppointmentRepo{}
	notifications := &mockNotificationWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, notifications, &mockAuditWriter{})

	appointment, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	require.NoError(t, err)
	require.Len(t, notifications.created, 2)

	toTherapist := notifications.created[0]
	assert.Equal(t, "th-1", toTherapist.UserID)
	assert.Equal(t, models.NotificationTypeNewAppointment, toTherapist.Type)
	require.NotNil(t, toTherapist.AppointmentID)
	assert.Equal(t, appointment.ID, *toTherapist.AppointmentID)
	assert.Contains(t, toTherapist.Message, "2026-09-15 at 10:00")

	toPatient := notifications.created[1]
	assert.Equal(t, "pat-1", toPatient.UserID)
	assert.Equal(t, models.NotificationTypeAppointmentConfirmed, toPatient.Type)
	assert.Contains(t, toPatient.Message, "Dr. Sarah")
}

func TestCreateAppointment_NotificationFailureDoesNotFailBooking(t *testing.T) {
	repo := &mockAppointmentRepo{}
	notifications := &mockNotificationWriter{err: errors.New("insert failed")}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, notifications, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	assert.NoError(t, err)
}

func TestCreateAppointment_SlotConflict(t *testing.T) {
	repo := &mockAppointmentRepo{
		hasConflictFn: func(ctx context.Context, therapistID, date, timeOfDay string) (bool, error) {
			return true, nil
		},
	}
	notifications := &mockNotificationWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, notifications, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErr.Code)
	assert.Empty(t, repo.created)
	assert.Empty(t, notifications.created)
}

func TestCreateAppointment_UniqueViolationRace(t *testing.T) {
	// The pre-check passes but a concurrent booking wins the insert; the
	// repository surfaces the translated conflict error.
	repo := &mockAppointmentRepo{
		createFn: func(ctx context.Context, appointment *models.Appointment) error {
			return appErrors.Wrap(errors.New("pq: duplicate key"), appErrors.ErrSlotTaken.Code, appErrors.ErrSlotTaken.Status, appErrors.ErrSlotTaken.Message)
		},
	}
	notifications := &mockNotificationWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, notifications, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErr.Code)
	assert.Empty(t, notifications.created)
}

func TestCreateAppointment_PatientAlwaysBooksForSelf(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{therapist: activeTherapist()}, &mockNotificationWriter{}, &mockAuditWriter{})

	req := bookingRequest()
	req.PatientID = "someone-else"

	appointment, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, req)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", appointment.PatientID)
}

func TestCreateAppointment_AdminMustNamePatient(t *testing.T) {
	svc := newTestAppointmentService(&mockAppointmentRepo{}, &mockTherapistReader{therapist: activeTherapist()}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, bookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req := bookingRequest()
	req.PatientID = "pat-9"
	appointment, err := svc.Create(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, req)
	require.NoError(t, err)
	assert.Equal(t, "pat-9", appointment.PatientID)
}

func TestCreateAppointment_TherapistCannotBook(t *testing.T) {
	svc := newTestAppointmentService(&mockAppointmentRepo{}, &mockTherapistReader{therapist: activeTherapist()}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "th-1", Role: models.RoleTherapist}, bookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateAppointment_InactiveTherapist(t *testing.T) {
	therapist := activeTherapist()
	therapist.Active = false
	svc := newTestAppointmentService(&mockAppointmentRepo{}, &mockTherapistReader{therapist: therapist}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateAppointment_UnknownTherapist(t *testing.T) {
	svc := newTestAppointmentService(&mockAppointmentRepo{}, &mockTherapistReader{err: sql.ErrNoRows}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, bookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListAppointments_ScopesToActor(t *testing.T) {
	tests := []struct {
		name          string
		actor         models.Actor
		wantPatient   string
		wantTherapist string
	}{
		{
			name:        "patient scoped to own rows",
			actor:       models.Actor{UserID: "pat-1", Role: models.RolePatient},
			wantPatient: "pat-1",
		},
		{
			name:          "therapist scoped to own rows",
			actor:         models.Actor{UserID: "th-1", Role: models.RoleTherapist},
			wantTherapist: "th-1",
		},
		{
			name:          "admin keeps supplied filter",
			actor:         models.Actor{UserID: "adm-1", Role: models.RoleAdmin},
			wantPatient:   "pat-9",
			wantTherapist: "th-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAppointmentRepo{}
			svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, &mockAuditWriter{})

			filter := models.AppointmentFilter{PatientID: "pat-9", TherapistID: "th-9"}
			_, _, err := svc.List(context.Background(), tt.actor, filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPatient, repo.lastListInput.PatientID)
			assert.Equal(t, tt.wantTherapist, repo.lastListInput.TherapistID)
		})
	}
}

func TestGetAppointment_EnforcesOwnership(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusScheduled}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.Get(context.Background(), models.Actor{UserID: "pat-1", Role: models.RolePatient}, "apt-1")
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), models.Actor{UserID: "pat-2", Role: models.RolePatient}, "apt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatus_RecordsAuditEntry(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusScheduled}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	audits := &mockAuditWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, audits)

	notes := "Patient recovered well"
	appointment, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, "apt-1", UpdateStatusRequest{Status: "completed", Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, appointment.Status)
	assert.Equal(t, notes, appointment.Notes)
	assert.Equal(t, 1, repo.updateCalls)

	require.Len(t, audits.entries, 1)
	entry := audits.entries[0]
	assert.Equal(t, models.AuditActionStatusChange, entry.Action)
	assert.Equal(t, models.ResourceAppointment, entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "adm-1", *entry.UserID)

	var oldValues, newValues map[string]string
	require.NoError(t, json.Unmarshal(entry.OldValues, &oldValues))
	require.NoError(t, json.Unmarshal(entry.NewValues, &newValues))
	assert.Equal(t, "scheduled", oldValues["status"])
	assert.Equal(t, "completed", newValues["status"])
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusConfirmed}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	audits := &mockAuditWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, audits)

	appointment, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "th-1", Role: models.RoleTherapist}, "apt-1", UpdateStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, appointment.Status)
	assert.Zero(t, repo.updateCalls)
	assert.Empty(t, audits.entries)
}

func TestUpdateStatus_SameStatusReplacesNotes(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusConfirmed, Notes: "bring walker"}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	audits := &mockAuditWriter{}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, audits)

	notes := "bring walker and resistance bands"
	appointment, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "th-1", Role: models.RoleTherapist}, "apt-1", UpdateStatusRequest{Status: "confirmed", Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, appointment.Status)
	assert.Equal(t, notes, appointment.Notes)
	assert.Equal(t, 1, repo.updateCalls)
	assert.Empty(t, audits.entries)
}

func TestUpdateStatus_TerminalStatusRejected(t *testing.T) {
	for _, terminal := range []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: terminal}
			repo := &mockAppointmentRepo{
				findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
					return stored, nil
				},
			}
			audits := &mockAuditWriter{}
			svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, audits)

			_, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, "apt-1", UpdateStatusRequest{Status: "in_progress"})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
			assert.Zero(t, repo.updateCalls)
			assert.Empty(t, audits.entries)
		})
	}
}

func TestUpdateStatus_BackwardsMoveAllowed(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusConfirmed}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, &mockAuditWriter{})

	appointment, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, "apt-1", UpdateStatusRequest{Status: "scheduled"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, appointment.Status)
}

func TestUpdateStatus_UnrecognizedStatus(t *testing.T) {
	svc := newTestAppointmentService(&mockAppointmentRepo{}, &mockTherapistReader{}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, "apt-1", UpdateStatusRequest{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatus_UnrelatedActorForbidden(t *testing.T) {
	stored := &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusScheduled}
	repo := &mockAppointmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Appointment, error) {
			return stored, nil
		},
	}
	svc := newTestAppointmentService(repo, &mockTherapistReader{}, &mockNotificationWriter{}, &mockAuditWriter{})

	_, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "th-2", Role: models.RoleTherapist}, "apt-1", UpdateStatusRequest{Status: "confirmed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
