package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func appointmentRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "patient_id", "therapist_id", "date", "time", "service_type",
		"status", "duration_minutes", "notes", "address", "total_cost",
		"payment_status", "created_at", "updated_at",
	}).AddRow(
		"apt-1", "pat-1", "th-1", "2026-09-15", "10:00", "Ortopedi",
		"scheduled", 60, "", "Jl. Sudirman No. 1", 200000.0,
		"unpaid", now, now,
	)
}

func TestAppointmentCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectExec(`INSERT INTO appointments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	appointment := &models.Appointment{
		PatientID:   "pat-1",
		TherapistID: "th-1",
		Date:        "2026-09-15",
		Time:        "10:00",
		ServiceType: "Ortopedi",
		Status:      models.StatusScheduled,
	}
	err := repo.Create(context.Background(), appointment)
	require.NoError(t, err)
	assert.NotEmpty(t, appointment.ID)
	assert.False(t, appointment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreate_UniqueViolationBecomesSlotConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectExec(`INSERT INTO appointments`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uniq_appointments_active_slot"})

	err := repo.Create(context.Background(), &models.Appointment{
		PatientID:   "pat-1",
		TherapistID: "th-1",
		Date:        "2026-09-15",
		Time:        "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectQuery(`SELECT .+ FROM appointments WHERE id = \$1`).
		WithArgs("apt-1").
		WillReturnRows(appointmentRows())

	appointment, err := repo.FindByID(context.Background(), "apt-1")
	require.NoError(t, err)
	assert.Equal(t, "apt-1", appointment.ID)
	assert.Equal(t, models.StatusScheduled, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentList_AppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectQuery(`SELECT .+ FROM appointments WHERE 1=1 AND patient_id = \$1 AND status = \$2 ORDER BY date DESC, time DESC`).
		WithArgs("pat-1", "scheduled").
		WillReturnRows(appointmentRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE 1=1 AND patient_id = \$1 AND status = \$2`).
		WithArgs("pat-1", "scheduled").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	appointments, total, err := repo.List(context.Background(), models.AppointmentFilter{
		PatientID: "pat-1",
		Status:    "scheduled",
	})
	require.NoError(t, err)
	assert.Len(t, appointments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentList_PageSizeBounds(t *testing.T) {
	t.Run("oversize request clamps to configured cap", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAppointmentRepository(db, 500)

		mock.ExpectQuery(`SELECT .+ FROM appointments WHERE 1=1 ORDER BY date DESC, time DESC LIMIT 500 OFFSET 0`).
			WillReturnRows(appointmentRows())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE 1=1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, _, err := repo.List(context.Background(), models.AppointmentFilter{Page: 1, PageSize: 1000})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing size falls back to default", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAppointmentRepository(db, 0)

		mock.ExpectQuery(`SELECT .+ FROM appointments WHERE 1=1 ORDER BY date DESC, time DESC LIMIT 20 OFFSET 0`).
			WillReturnRows(appointmentRows())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE 1=1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, _, err := repo.List(context.Background(), models.AppointmentFilter{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppointmentHasConflict_IgnoresTerminalStatuses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM appointments WHERE therapist_id = \$1 AND date = \$2 AND time = \$3 AND status NOT IN \('cancelled', 'completed'\)\)`).
		WithArgs("th-1", "2026-09-15", "10:00").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	conflict, err := repo.HasConflict(context.Background(), "th-1", "2026-09-15", "10:00")
	require.NoError(t, err)
	assert.False(t, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentBookedTimes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectQuery(`SELECT time FROM appointments WHERE therapist_id = \$1 AND date = \$2 AND status NOT IN \('cancelled', 'completed'\) ORDER BY time ASC`).
		WithArgs("th-1", "2026-09-15").
		WillReturnRows(sqlmock.NewRows([]string{"time"}).AddRow("08:00").AddRow("10:00"))

	times, err := repo.BookedTimes(context.Background(), "th-1", "2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "10:00"}, times)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateStatus(t *testing.T) {
	t.Run("with notes", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAppointmentRepository(db, 0)

		notes := "Recovered well"
		mock.ExpectExec(`UPDATE appointments SET status = \$2, notes = \$3, updated_at = \$4 WHERE id = \$1`).
			WithArgs("apt-1", models.StatusCompleted, notes, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "apt-1", models.StatusCompleted, &notes)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without notes", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAppointmentRepository(db, 0)

		mock.ExpectExec(`UPDATE appointments SET status = \$2, updated_at = \$3 WHERE id = \$1`).
			WithArgs("apt-1", models.StatusConfirmed, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "apt-1", models.StatusConfirmed, nil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppointmentCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db, 0)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM appointments WHERE 1=1 AND therapist_id = \$1 GROUP BY status`).
		WithArgs("th-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).
			AddRow("scheduled", 3).
			AddRow("completed", 7))

	counts, err := repo.CountByStatus(context.Background(), models.AppointmentFilter{TherapistID: "th-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"scheduled": 3, "completed": 7}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
