package unavailability

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
	"github.com/BorcilaVasile/medical-appointment-api/internal/schedule"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/availability"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
)

// Service manages the doctor-declared blackout ledger. A declaration
// colliding with a live appointment is rejected: blocks never cascade
// into silent cancellations.
type Service struct {
	blocks   repository.UnavailabilityRepository
	appts    repository.AppointmentRepository
	grid     *schedule.Grid
	resolver *availability.Service
	metrics  *metrics.Metrics
}

func NewService(
	blocks repository.UnavailabilityRepository,
	appts repository.AppointmentRepository,
	grid *schedule.Grid,
	resolver *availability.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		blocks:   blocks,
		appts:    appts,
		grid:     grid,
		resolver: resolver,
		metrics:  m,
	}
}

// Declare records a blackout for one day, either full-day or a set of
// specific slots.
func (s *Service) Declare(ctx context.Context, req *model.DeclareUnavailabilityRequest) (*model.UnavailableBlock, error) {
	if _, err := schedule.ParseDate(req.Date); err != nil {
		return nil, err
	}
	if !req.IsFullDay && len(req.Slots) == 0 {
		return nil, apperror.New(apperror.ReasonInvalidSlot, "a block must be full-day or name at least one slot")
	}
	for _, slot := range req.Slots {
		if !s.grid.Contains(slot) {
			return nil, apperror.InvalidSlot(slot)
		}
	}

	appts, err := s.appts.ListForDoctorRange(ctx, req.DoctorID, req.Date, req.Date)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}
	for _, appt := range appts {
		if !appt.Status.IsHolding() {
			continue
		}
		if req.IsFullDay || contains(req.Slots, appt.Slot) {
			return nil, apperror.ConflictsWithBooking(appt.Slot)
		}
	}

	block := &model.UnavailableBlock{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		IsFullDay: req.IsFullDay,
		Slots:     pq.StringArray(req.Slots),
	}
	if req.Reason != "" {
		block.Reason = &req.Reason
	}

	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, apperror.Unavailable(err)
	}
	s.resolver.Invalidate(req.DoctorID)

	if s.metrics != nil {
		s.metrics.BlocksDeclared.Inc()
	}
	return block, nil
}

// Revoke deletes the block; affected slots revert to whatever the
// appointment state otherwise dictates.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	block, err := s.blocks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("unavailable block")
		}
		return apperror.Unavailable(err)
	}

	if actor.Role != model.RoleAdmin && actor.ID != block.DoctorID {
		return apperror.Forbidden("only the declaring doctor may revoke a block")
	}

	if err := s.blocks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("unavailable block")
		}
		return apperror.Unavailable(err)
	}
	s.resolver.Invalidate(block.DoctorID)
	return nil
}

// List returns the doctor's blocks for a date range.
func (s *Service) List(ctx context.Context, doctorID uuid.UUID, from, to string) ([]*model.UnavailableBlock, error) {
	if _, err := schedule.ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := schedule.ParseDate(to); err != nil {
		return nil, err
	}

	blocks, err := s.blocks.ListForDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}
	return blocks, nil
}

func contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
