package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
	"github.com/BorcilaVasile/medical-appointment-api/internal/schedule"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/availability"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/notification"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/clock"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/logger"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
)

type Config struct {
	// AutoConfirm selects the initial holding status: confirmed when
	// set, pending (doctor must confirm) otherwise. Either way the
	// slot is occupied from commit on.
	AutoConfirm bool
	// BookingLead is the minimum notice for creating an appointment.
	BookingLead time.Duration
	// PatientCancelLead and DoctorCancelLead are the minimum notice
	// for cancellation, per requester side.
	PatientCancelLead time.Duration
	DoctorCancelLead  time.Duration
}

// Service is the state machine that commits or rejects booking
// requests and drives the appointment lifecycle.
type Service struct {
	repo     repository.AppointmentRepository
	resolver *availability.Service
	grid     *schedule.Grid
	notifier notification.Emitter
	clk      clock.Clock
	cfg      Config
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	resolver *availability.Service,
	grid *schedule.Grid,
	notifier notification.Emitter,
	clk clock.Clock,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		grid:     grid,
		notifier: notifier,
		clk:      clk,
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}
}

// Book validates the request and atomically commits the appointment.
// Preconditions run in a fixed order, each short-circuiting with its
// own rejection reason. The availability re-check plus insert is a
// single atomic unit against the store: of N concurrent bookers for
// one slot, exactly one wins and the rest get SLOT_TAKEN.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if !s.grid.Contains(req.Slot) {
		return nil, s.reject(apperror.InvalidSlot(req.Slot))
	}

	day, err := schedule.ParseDate(req.VisitDate)
	if err != nil {
		return nil, s.reject(err)
	}
	startAt, err := s.grid.SlotStart(day, req.Slot)
	if err != nil {
		return nil, s.reject(err)
	}
	if startAt.Before(s.clk.Now().Add(s.cfg.BookingLead)) {
		return nil, s.reject(apperror.TooLate("appointments require advance booking"))
	}

	// Authoritative re-check: client-side views are never trusted.
	status, err := s.resolver.ResolveSlot(ctx, req.DoctorID, req.VisitDate, req.Slot)
	if err != nil {
		return nil, s.reject(err)
	}
	if status == model.SlotUnavailable || status == model.SlotBooked {
		return nil, s.reject(apperror.SlotTaken(req.Slot))
	}

	if strings.TrimSpace(req.Reason) == "" {
		return nil, s.reject(apperror.InvalidReason())
	}

	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  req.ClinicID,
		VisitDate: req.VisitDate,
		Slot:      req.Slot,
		Status:    s.initialStatus(),
		Reason:    req.Reason,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlot) {
			// Lost the race between re-check and insert.
			return nil, s.reject(apperror.SlotTaken(req.Slot))
		}
		return nil, apperror.Unavailable(err)
	}

	s.resolver.Invalidate(appt.DoctorID)

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}

	if err := s.notifier.AppointmentCreated(ctx, appt); err != nil {
		s.log.Error(err, "failed to emit created notification", "appointment_id", appt.ID.String())
	}

	return appt, nil
}

// Cancel applies the cancellation policy. Idempotent: a cancelled
// appointment cancels to itself without error.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor model.Actor, reason string) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, apperror.Unavailable(err)
	}

	if actor.ID != appt.PatientID && actor.ID != appt.DoctorID {
		return nil, apperror.Forbidden("only the appointment's patient or doctor may cancel it")
	}

	if appt.Status == model.AppointmentStatusCancelled {
		return appt, nil
	}
	if appt.Status == model.AppointmentStatusCompleted {
		return nil, apperror.TooLateToCancel("the visit already took place")
	}

	lead := s.cfg.PatientCancelLead
	if actor.ID == appt.DoctorID {
		lead = s.cfg.DoctorCancelLead
	}

	day, err := schedule.ParseDate(appt.VisitDate)
	if err != nil {
		return nil, err
	}
	startAt, err := s.grid.SlotStart(day, appt.Slot)
	if err != nil {
		return nil, err
	}
	if startAt.Before(s.clk.Now().Add(lead)) {
		return nil, apperror.TooLateToCancel("the appointment starts too soon to cancel")
	}

	appt.Status = model.AppointmentStatusCancelled
	if strings.TrimSpace(reason) != "" {
		appt.CancelReason = &reason
	}

	// The status flip alone frees the slot: only holding statuses
	// count against the uniqueness rule.
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, apperror.Unavailable(err)
	}
	s.resolver.Invalidate(appt.DoctorID)

	if s.metrics != nil {
		s.metrics.Cancellations.WithLabelValues(string(actor.Role)).Inc()
	}

	if err := s.notifier.AppointmentCancelled(ctx, appt, actor); err != nil {
		s.log.Error(err, "failed to emit cancelled notification", "appointment_id", appt.ID.String())
	}

	return appt, nil
}

// Confirm moves a pending appointment to confirmed. Only the
// appointment's doctor may confirm.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, apperror.Unavailable(err)
	}

	if actor.ID != appt.DoctorID {
		return nil, apperror.Forbidden("only the appointment's doctor may confirm it")
	}
	if appt.Status == model.AppointmentStatusConfirmed {
		return appt, nil
	}
	if appt.Status != model.AppointmentStatusPending {
		return nil, apperror.New(apperror.ReasonConflictsWithBooking, "appointment is not pending")
	}

	appt.Status = model.AppointmentStatusConfirmed
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, apperror.Unavailable(err)
	}

	if err := s.notifier.AppointmentUpdated(ctx, appt); err != nil {
		s.log.Error(err, "failed to emit updated notification", "appointment_id", appt.ID.String())
	}
	return appt, nil
}

// Complete closes the visit and records the doctor's post-visit notes.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.CompleteAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, apperror.Unavailable(err)
	}

	if actor.ID != appt.DoctorID {
		return nil, apperror.Forbidden("only the appointment's doctor may close the visit")
	}
	if !appt.Status.IsHolding() {
		return nil, apperror.New(apperror.ReasonConflictsWithBooking, "only a held appointment can be completed")
	}

	appt.Status = model.AppointmentStatusCompleted
	if req.Diagnosis != "" {
		appt.Diagnosis = &req.Diagnosis
	}
	if req.Referral != "" {
		appt.Referral = &req.Referral
	}
	if req.Notes != "" {
		appt.Notes = &req.Notes
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, apperror.Unavailable(err)
	}
	// Completed no longer holds the slot.
	s.resolver.Invalidate(appt.DoctorID)

	if err := s.notifier.AppointmentUpdated(ctx, appt); err != nil {
		s.log.Error(err, "failed to emit updated notification", "appointment_id", appt.ID.String())
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("appointment")
		}
		return nil, apperror.Unavailable(err)
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}
	return appts, nil
}

func (s *Service) initialStatus() model.AppointmentStatus {
	if s.cfg.AutoConfirm {
		return model.AppointmentStatusConfirmed
	}
	return model.AppointmentStatusPending
}

func (s *Service) reject(err error) error {
	if s.metrics != nil {
		if reason := apperror.ReasonOf(err); reason != "" {
			s.metrics.BookingsRejected.WithLabelValues(string(reason)).Inc()
		}
	}
	return err
}
