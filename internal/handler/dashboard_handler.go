package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/repository"
	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

// DashboardHandler serves summary counts and the audit trail.
type DashboardHandler struct {
	dashboards *service.DashboardService
	audits     *repository.AuditRepository
}

func NewDashboardHandler(dashboards *service.DashboardService, audits *repository.AuditRepository) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, audits: audits}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Returns appointment counts scoped to the caller. Administrators also see user totals.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, cached, err := h.dashboards.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache": cached})
}

// AppointmentAudit godoc
// @Summary Appointment audit trail
// @Description Lists recorded status changes for an appointment. Administrators only.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/{id}/audit [get]
func (h *DashboardHandler) AppointmentAudit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if !service.IsAuthorized(actor, service.ActionAuditView, nil) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.audits.ListByResource(c.Request.Context(), models.ResourceAppointment, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}
