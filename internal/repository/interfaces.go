package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSlot is returned by Create when another holding
	// appointment already occupies the (doctor, date, slot) triple.
	// Backed by storage-level uniqueness so concurrent bookers cannot
	// both succeed.
	ErrDuplicateSlot = errors.New("slot already held by another appointment")
)

type (
	AppointmentRepository interface {
		// Create inserts the appointment iff no holding appointment
		// occupies the same (doctor, date, slot); otherwise it returns
		// ErrDuplicateSlot. The check and the insert are one atomic unit.
		Create(ctx context.Context, appt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appt *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListForDoctorRange returns non-deleted appointments for the
		// doctor with visit dates in [from, to], any status.
		ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]*model.Appointment, error)
	}

	UnavailabilityRepository interface {
		Create(ctx context.Context, block *model.UnavailableBlock) error
		Get(ctx context.Context, id uuid.UUID) (*model.UnavailableBlock, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]*model.UnavailableBlock, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending atomically moves up to limit pending events to
		// processing and returns them, so concurrent processors never
		// see the same event.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		RequeueStale(ctx context.Context, before time.Time) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
