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

// TherapistHandler serves the therapist directory.
type TherapistHandler struct {
	therapists *service.TherapistService
}

func NewTherapistHandler(therapists *service.TherapistService) *TherapistHandler {
	return &TherapistHandler{therapists: therapists}
}

// List godoc
// @Summary List therapists
// @Description Lists therapists with their profiles. Filterable by specialization and availability.
// @Tags therapists
// @Produce json
// @Security BearerAuth
// @Param specialization query string false "Filter by specialization"
// @Param available query bool false "Only therapists accepting bookings"
// @Param search query string false "Search by name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /therapists [get]
func (h *TherapistHandler) List(c *gin.Context) {
	filter := models.TherapistFilter{
		Specialization: c.Query("specialization"),
		Search:         c.Query("search"),
	}
	filter.AvailableOnly, _ = strconv.ParseBool(c.DefaultQuery("available", "false"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	therapists, pagination, err := h.therapists.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, therapists, pagination)
}

// Get godoc
// @Summary Get a therapist
// @Tags therapists
// @Produce json
// @Security BearerAuth
// @Param id path string true "Therapist ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id} [get]
func (h *TherapistHandler) Get(c *gin.Context) {
	therapist, err := h.therapists.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, therapist, nil)
}

// UpsertProfile godoc
// @Summary Create or update a therapist profile
// @Description Therapists edit their own profile; administrators edit any.
// @Tags therapists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Therapist ID"
// @Param request body service.UpsertProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /therapists/{id}/profile [put]
func (h *TherapistHandler) UpsertProfile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	profile, err := h.therapists.UpsertProfile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}
