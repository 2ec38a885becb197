package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/service"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

// ExportHandler serves appointment report downloads.
type ExportHandler struct {
	exports *service.ExportService
}

func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Appointments godoc
// @Summary Export appointments
// @Description Downloads the appointment list as CSV or PDF. Administrators only.
// @Tags exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string true "Export format (csv or pdf)"
// @Param status query string false "Filter by status"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exports/appointments [get]
func (h *ExportHandler) Appointments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AppointmentFilter{
		Status:      c.Query("status"),
		Date:        c.Query("date"),
		TherapistID: c.Query("therapist_id"),
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.Appointments(c.Request.Context(), actor, filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
