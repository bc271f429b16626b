package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
	"github.com/BorcilaVasile/medical-appointment-api/internal/schedule"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/clock"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"

	"github.com/google/uuid"
)

// cacheTTL bounds staleness of the read-side grid. The booking service
// never reads this cache; its commit-time re-check is authoritative.
const cacheTTL = 5 * time.Second

type Config struct {
	// BookingLead marks near-term free slots expired so the UI never
	// offers a slot the arbiter would reject.
	BookingLead time.Duration
	// MaxRangeDays bounds computation; wider requests are rejected.
	MaxRangeDays int
}

// Service computes per-day, per-slot availability. Read-only and
// deterministic for a fixed clock.
type Service struct {
	appts   repository.AppointmentRepository
	blocks  repository.UnavailabilityRepository
	grid    *schedule.Grid
	clk     clock.Clock
	cfg     Config
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewService(
	appts repository.AppointmentRepository,
	blocks repository.UnavailabilityRepository,
	grid *schedule.Grid,
	clk clock.Clock,
	cfg Config,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appts:   appts,
		blocks:  blocks,
		grid:    grid,
		clk:     clk,
		cfg:     cfg,
		cache:   gocache.New(cacheTTL, time.Minute),
		metrics: m,
	}
}

// Resolve classifies every grid slot for the doctor across [from, to].
// Holding appointments are reported booked even inside the lead window,
// so a patient's own near-term booking stays visible and cancellable.
func (s *Service) Resolve(ctx context.Context, doctorID uuid.UUID, from, to string) ([]model.DaySchedule, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.AvailabilityLatency)
		defer timer.ObserveDuration()
	}

	start, err := schedule.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperror.InvalidDate("date range is inverted")
	}
	if schedule.DaysBetween(start, end) >= s.cfg.MaxRangeDays {
		return nil, apperror.RangeTooLarge(s.cfg.MaxRangeDays)
	}

	if cached, ok := s.cache.Get(s.cacheKey(doctorID, from, to)); ok {
		return cached.([]model.DaySchedule), nil
	}

	appts, err := s.appts.ListForDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}
	blocks, err := s.blocks.ListForDoctorRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}

	booked := make(map[string]*model.Appointment)
	for _, appt := range appts {
		if appt.Status.IsHolding() {
			booked[appt.VisitDate+"|"+appt.Slot] = appt
		}
	}
	blocksByDate := make(map[string][]*model.UnavailableBlock)
	for _, b := range blocks {
		blocksByDate[b.Date] = append(blocksByDate[b.Date], b)
	}

	var days []model.DaySchedule
	schedule.EachDay(start, end, func(d time.Time) {
		days = append(days, s.resolveDay(d, booked, blocksByDate[schedule.FormatDate(d)]))
	})

	s.cache.SetDefault(s.cacheKey(doctorID, from, to), days)
	return days, nil
}

// ResolveSlot classifies a single (date, slot) cell. Used by the
// booking service for its authoritative commit-time check, bypassing
// the cache.
func (s *Service) ResolveSlot(ctx context.Context, doctorID uuid.UUID, date, slot string) (model.SlotStatus, error) {
	if !s.grid.Contains(slot) {
		return "", apperror.InvalidSlot(slot)
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return "", err
	}

	appts, err := s.appts.ListForDoctorRange(ctx, doctorID, date, date)
	if err != nil {
		return "", apperror.Unavailable(err)
	}
	blocks, err := s.blocks.ListForDoctorRange(ctx, doctorID, date, date)
	if err != nil {
		return "", apperror.Unavailable(err)
	}

	for _, b := range blocks {
		if b.Covers(slot) {
			return model.SlotUnavailable, nil
		}
	}
	for _, appt := range appts {
		if appt.Slot == slot && appt.Status.IsHolding() {
			return model.SlotBooked, nil
		}
	}

	startAt, err := s.grid.SlotStart(day, slot)
	if err != nil {
		return "", err
	}
	if startAt.Before(s.clk.Now().Add(s.cfg.BookingLead)) {
		return model.SlotExpired, nil
	}
	return model.SlotAvailable, nil
}

func (s *Service) resolveDay(day time.Time, booked map[string]*model.Appointment, blocks []*model.UnavailableBlock) model.DaySchedule {
	date := schedule.FormatDate(day)
	now := s.clk.Now()
	horizon := now.Add(s.cfg.BookingLead)

	out := model.DaySchedule{Date: date}
	for _, slot := range s.grid.Slots() {
		view := model.SlotView{Time: slot, Status: model.SlotAvailable}

		switch {
		case coveredByAny(blocks, slot):
			view.Status = model.SlotUnavailable
		case booked[date+"|"+slot] != nil:
			// Holding appointments stay visible as booked even inside
			// the lead window, so a patient can still see and cancel a
			// near-term booking of their own.
			view.Status = model.SlotBooked
		default:
			startAt, err := s.grid.SlotStart(day, slot)
			if err == nil && startAt.Before(horizon) {
				view.Status = model.SlotExpired
			}
		}

		if view.Status == model.SlotAvailable {
			out.AvailableCount++
		}
		out.Slots = append(out.Slots, view)
	}
	return out
}

func coveredByAny(blocks []*model.UnavailableBlock, slot string) bool {
	for _, b := range blocks {
		if b.Covers(slot) {
			return true
		}
	}
	return false
}

// Invalidate drops every cached schedule for the doctor. The mutating
// services call it on commit so a freed or newly blocked slot shows up
// immediately instead of after the TTL lapses.
func (s *Service) Invalidate(doctorID uuid.UUID) {
	prefix := doctorID.String() + "|"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

func (s *Service) cacheKey(doctorID uuid.UUID, from, to string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, from, to)
}
