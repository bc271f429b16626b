package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func sampleAppointment() *model.Appointment {
	return &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		ClinicID:  uuid.New(),
		VisitDate: "2026-09-15",
		Slot:      "10:00",
		Status:    model.AppointmentStatusPending,
		Reason:    "checkup",
	}
}

func TestAppointmentCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	appt := sampleAppointment()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(
			appt.ID, appt.PatientID, appt.DoctorID, appt.ClinicID,
			appt.VisitDate, appt.Slot, appt.Status, appt.Reason,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), appt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreateDuplicateSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	appt := sampleAppointment()

	// A losing concurrent booker trips the partial unique index.
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_appointments_slot_holder"})

	err := repo.Create(context.Background(), appt)
	assert.ErrorIs(t, err, repository.ErrDuplicateSlot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	appt := sampleAppointment()

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "clinic_id",
		"visit_date", "slot", "status", "reason",
		"diagnosis", "referral", "notes", "cancel_reason",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(
		appt.ID, appt.PatientID, appt.DoctorID, appt.ClinicID,
		appt.VisitDate, appt.Slot, appt.Status, appt.Reason,
		nil, nil, nil, nil,
		time.Now(), time.Now(), nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(appt.ID).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, "2026-09-15", got.VisitDate)
	assert.Equal(t, model.AppointmentStatusPending, got.Status)
}

func TestAppointmentGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	appt := sampleAppointment()

	mock.ExpectExec("UPDATE appointments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), appt)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentListForDoctorRange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)
	doctorID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "clinic_id",
		"visit_date", "slot", "status", "reason",
		"diagnosis", "referral", "notes", "cancel_reason",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(
		uuid.New(), uuid.New(), doctorID, uuid.New(),
		"2026-09-15", "10:00", "confirmed", "checkup",
		nil, nil, nil, nil,
		time.Now(), time.Now(), nil,
	).AddRow(
		uuid.New(), uuid.New(), doctorID, uuid.New(),
		"2026-09-16", "11:30", "pending", "followup",
		nil, nil, nil, nil,
		time.Now(), time.Now(), nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(doctorID, "2026-09-14", "2026-09-20").
		WillReturnRows(rows)

	appts, err := repo.ListForDoctorRange(context.Background(), doctorID, "2026-09-14", "2026-09-20")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "2026-09-15", appts[0].VisitDate)
	assert.Equal(t, model.AppointmentStatusConfirmed, appts[0].Status)
}
