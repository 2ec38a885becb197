package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
	"github.com/fisiohome/fisiohome-api/pkg/export"
)

// ExportFormat identifies a supported export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type exportAppointmentLister interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
}

// ExportResult carries a rendered document and its HTTP metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders appointment reports for administrators.
type ExportService struct {
	appointments exportAppointmentLister
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

func NewExportService(appointments exportAppointmentLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		appointments: appointments,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

const exportPageSize = 1000

// Appointments renders the appointment list matching filter as format.
// Admin only.
func (s *ExportService) Appointments(ctx context.Context, actor models.Actor, filter models.AppointmentFilter, format ExportFormat) (*ExportResult, error) {
	if !IsAuthorized(actor, ActionExportRun, nil) {
		return nil, appErrors.ErrForbidden
	}

	// The repository caps page sizes, so reports larger than one page
	// are collected by walking pages until the reported total is in.
	filter.Page = 1
	filter.PageSize = exportPageSize
	var appointments []models.Appointment
	for {
		batch, total, err := s.appointments.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, batch...)
		if len(batch) == 0 || len(appointments) >= total {
			break
		}
		filter.Page++
	}

	data := export.Dataset{
		Headers: []string{"ID", "Patient", "Therapist", "Date", "Time", "Service", "Status", "Duration", "Total Cost", "Payment"},
	}
	for _, a := range appointments {
		data.Rows = append(data.Rows, []string{
			a.ID,
			a.PatientID,
			a.TherapistID,
			a.Date,
			a.Time,
			a.ServiceType,
			string(a.Status),
			strconv.Itoa(a.DurationMinutes),
			strconv.FormatFloat(a.TotalCost, 'f', 2, 64),
			a.PaymentStatus,
		})
	}

	switch format {
	case FormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, "EXPORT_FAILED", http.StatusInternalServerError, "failed to render CSV export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    "appointments.csv",
		}, nil
	case FormatPDF:
		content, err := s.pdf.Render(data, "Appointment Report")
		if err != nil {
			return nil, appErrors.Wrap(err, "EXPORT_FAILED", http.StatusInternalServerError, "failed to render PDF export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    "appointments.pdf",
		}, nil
	default:
		return nil, appErrors.Wrap(fmt.Errorf("unsupported format %q", format), appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
}
