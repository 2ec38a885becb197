package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

// AvailabilityHandler serves weekly windows and derived slots.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Slots godoc
// @Summary Bookable slots for a date
// @Description Lists open slots for a therapist on a date, excluding already booked times.
// @Tags availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Therapist ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /therapists/{id}/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	slots, err := h.availability.AvailableSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

// ListWindows godoc
// @Summary List availability windows
// @Tags availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Therapist ID"
// @Success 200 {object} response.Envelope
// @Router /therapists/{id}/availability [get]
func (h *AvailabilityHandler) ListWindows(c *gin.Context) {
	windows, err := h.availability.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, windows, nil)
}

// CreateWindow godoc
// @Summary Create an availability window
// @Description Adds a weekly recurring window. Therapists manage their own; administrators manage any.
// @Tags availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) CreateWindow(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	window, err := h.availability.CreateWindow(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, window)
}

// UpdateWindow godoc
// @Summary Update an availability window
// @Tags availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Window ID"
// @Param request body service.UpdateWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability/{id} [put]
func (h *AvailabilityHandler) UpdateWindow(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	window, err := h.availability.UpdateWindow(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, window, nil)
}

// DeleteWindow godoc
// @Summary Delete an availability window
// @Tags availability
// @Security BearerAuth
// @Param id path string true "Window ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) DeleteWindow(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.availability.DeleteWindow(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
