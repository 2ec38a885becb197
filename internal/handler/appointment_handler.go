package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

// AppointmentHandler serves the booking endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
	dashboards   *service.DashboardService
}

func NewAppointmentHandler(appointments *service.AppointmentService, dashboards *service.DashboardService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, dashboards: dashboards}
}

// Create godoc
// @Summary Book an appointment
// @Description Books a home visit. Patients book for themselves; administrators must name the patient.
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	appointment, err := h.appointments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboards.InvalidateFor(c.Request.Context(), appointment.PatientID, appointment.TherapistID)
	response.Created(c, appointment)
}

// List godoc
// @Summary List appointments
// @Description Lists appointments visible to the caller. Patients and therapists only see their own.
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AppointmentFilter{
		Status:      c.Query("status"),
		Date:        c.Query("date"),
		PatientID:   c.Query("patient_id"),
		TherapistID: c.Query("therapist_id"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	appointments, pagination, err := h.appointments.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Get godoc
// @Summary Get an appointment
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appointment, err := h.appointments.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}

// UpdateStatus godoc
// @Summary Update appointment status
// @Description Moves an appointment through its lifecycle. Completed and cancelled are terminal.
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param request body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	appointment, err := h.appointments.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboards.InvalidateFor(c.Request.Context(), appointment.PatientID, appointment.TherapistID)
	response.JSON(c, http.StatusOK, appointment, nil)
}
