package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisiohome/fisiohome-api/internal/middleware"
	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

type stubAppointmentRepo struct {
	conflict bool
	stored   *models.Appointment
}

func (s *stubAppointmentRepo) Create(ctx context.Context, appointment *models.Appointment) error {
	appointment.ID = "apt-1"
	return nil
}

func (s *stubAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if s.stored == nil {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *stubAppointmentRepo) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	return []models.Appointment{}, 0, nil
}

func (s *stubAppointmentRepo) HasConflict(ctx context.Context, therapistID, date, timeOfDay string) (bool, error) {
	return s.conflict, nil
}

func (s *stubAppointmentRepo) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, notes *string) error {
	return nil
}

func (s *stubAppointmentRepo) CountByStatus(ctx context.Context, filter models.AppointmentFilter) (map[string]int, error) {
	return map[string]int{}, nil
}

type stubTherapistReader struct{}

func (s *stubTherapistReader) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	return &models.Therapist{ID: id, FullName: "Dr. Sarah", Active: true, HourlyRate: 200000, Available: true}, nil
}

type stubNotificationRepo struct{}

func (s *stubNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (s *stubNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

type stubAuditWriter struct{}

func (s *stubAuditWriter) Create(ctx context.Context, entry *models.AuditLog) error {
	return nil
}

type stubRoleCounter struct{}

func (s *stubRoleCounter) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	return 0, nil
}

func newAppointmentRouter(repo *stubAppointmentRepo, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)

	appointments := service.NewAppointmentService(repo, &stubTherapistReader{}, &stubNotificationRepo{}, &stubAuditWriter{}, nil, nil, 60)
	cache := service.NewCacheService(nil, nil, 0, nil)
	dashboards := service.NewDashboardService(repo, &stubRoleCounter{}, &stubNotificationRepo{}, cache, nil)
	h := NewAppointmentHandler(appointments, dashboards)

	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, claims)
		})
	}
	router.POST("/appointments", h.Create)
	router.GET("/appointments", h.List)
	router.PATCH("/appointments/:id/status", h.UpdateStatus)
	return router
}

func patientClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient}
}

func bookingBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"therapist_id": "th-1",
		"date":         "2026-09-15",
		"time":         "10:00",
		"service_type": "Ortopedi",
		"address":      "Jl. Sudirman No. 1",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestAppointmentHandlerCreate(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentRepo{}, patientClaims())

	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "apt-1", data["id"])
	assert.Equal(t, "pat-1", data["patient_id"])
	assert.Equal(t, "scheduled", data["status"])
	assert.Equal(t, float64(200000), data["total_cost"])
}

func TestAppointmentHandlerCreate_Conflict(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentRepo{conflict: true}, patientClaims())

	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, envelope.Error.Code)
}

func TestAppointmentHandlerCreate_Unauthenticated(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentRepo{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppointmentHandlerCreate_MalformedBody(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentRepo{}, patientClaims())

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerUpdateStatus_Terminal(t *testing.T) {
	repo := &stubAppointmentRepo{
		stored: &models.Appointment{ID: "apt-1", PatientID: "pat-1", TherapistID: "th-1", Status: models.StatusCancelled},
	}
	router := newAppointmentRouter(repo, patientClaims())

	body := bytes.NewBufferString(`{"status":"confirmed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/appointments/apt-1/status", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrFinalized.Code, envelope.Error.Code)
}

func TestAppointmentHandlerList(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentRepo{}, patientClaims())

	req := httptest.NewRequest(http.MethodGet, "/appointments?page=2&page_size=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 10, envelope.Pagination.PageSize)
}
