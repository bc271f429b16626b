package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

const uniqueViolation = "23505"

// Create inserts the appointment. The appointments table carries a
// partial unique index on (doctor_id, visit_date, slot) restricted to
// holding statuses (see migrations), so a losing concurrent booker gets
// a unique violation here instead of a double booking.
func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, clinic_id,
			visit_date, slot, status, reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.ClinicID,
		appt.VisitDate,
		appt.Slot,
		appt.Status,
		appt.Reason,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, clinic_id,
		       visit_date, slot, status, reason,
		       diagnosis, referral, notes, cancel_reason,
		       created_at, updated_at, deleted_at
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1, reason = $2, diagnosis = $3, referral = $4,
		    notes = $5, cancel_reason = $6, updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	appt.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appt.Status,
		appt.Reason,
		appt.Diagnosis,
		appt.Referral,
		appt.Notes,
		appt.CancelReason,
		appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, clinic_id,
		       visit_date, slot, status, reason,
		       diagnosis, referral, notes, cancel_reason,
		       created_at, updated_at, deleted_at
		FROM appointments
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.ClinicID != uuid.Nil {
		query += fmt.Sprintf(" AND clinic_id = $%d", argCount)
		args = append(args, filters.ClinicID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.FromDate != "" {
		query += fmt.Sprintf(" AND visit_date >= $%d", argCount)
		args = append(args, filters.FromDate)
		argCount++
	}
	if filters.ToDate != "" {
		query += fmt.Sprintf(" AND visit_date <= $%d", argCount)
		args = append(args, filters.ToDate)
		argCount++
	}

	query += " ORDER BY visit_date ASC, slot ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, clinic_id,
		       visit_date, slot, status, reason,
		       diagnosis, referral, notes, cancel_reason,
		       created_at, updated_at, deleted_at
		FROM appointments
		WHERE doctor_id = $1
		AND visit_date >= $2
		AND visit_date <= $3
		AND deleted_at IS NULL
		ORDER BY visit_date ASC, slot ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}
