// Package memory provides mutex-guarded in-process implementations of
// the repository interfaces. They honor the same atomicity contract as
// the Postgres implementations and back the service-level tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

type AppointmentRepository struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*model.Appointment
	// held indexes the holding appointment per (doctor, date, slot),
	// mirroring the partial unique index in Postgres.
	held map[string]uuid.UUID
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{
		byID: make(map[uuid.UUID]*model.Appointment),
		held: make(map[string]uuid.UUID),
	}
}

func slotKey(doctorID uuid.UUID, date, slot string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date, slot)
}

func (r *AppointmentRepository) Create(_ context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey(appt.DoctorID, appt.VisitDate, appt.Slot)
	if appt.Status.IsHolding() {
		if _, taken := r.held[key]; taken {
			return repository.ErrDuplicateSlot
		}
		r.held[key] = appt.ID
	}

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *AppointmentRepository) Update(_ context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[appt.ID]
	if !ok {
		return repository.ErrNotFound
	}

	key := slotKey(stored.DoctorID, stored.VisitDate, stored.Slot)
	if stored.Status.IsHolding() && !appt.Status.IsHolding() {
		delete(r.held, key)
	}

	appt.UpdatedAt = time.Now()
	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func (r *AppointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, appt := range r.byID {
		if filters.DoctorID != uuid.Nil && appt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && appt.PatientID != filters.PatientID {
			continue
		}
		if filters.ClinicID != uuid.Nil && appt.ClinicID != filters.ClinicID {
			continue
		}
		if filters.Status != "" && appt.Status != filters.Status {
			continue
		}
		if filters.FromDate != "" && appt.VisitDate < filters.FromDate {
			continue
		}
		if filters.ToDate != "" && appt.VisitDate > filters.ToDate {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	sortAppointments(out)
	return out, nil
}

func (r *AppointmentRepository) ListForDoctorRange(_ context.Context, doctorID uuid.UUID, from, to string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, appt := range r.byID {
		if appt.DoctorID != doctorID {
			continue
		}
		if appt.VisitDate < from || appt.VisitDate > to {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	sortAppointments(out)
	return out, nil
}

func sortAppointments(appts []*model.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].VisitDate != appts[j].VisitDate {
			return appts[i].VisitDate < appts[j].VisitDate
		}
		return appts[i].Slot < appts[j].Slot
	})
}

type UnavailabilityRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.UnavailableBlock
}

func NewUnavailabilityRepository() *UnavailabilityRepository {
	return &UnavailabilityRepository{byID: make(map[uuid.UUID]*model.UnavailableBlock)}
}

func (r *UnavailabilityRepository) Create(_ context.Context, block *model.UnavailableBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	block.CreatedAt = now
	block.UpdatedAt = now

	cp := *block
	r.byID[block.ID] = &cp
	return nil
}

func (r *UnavailabilityRepository) Get(_ context.Context, id uuid.UUID) (*model.UnavailableBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	block, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *block
	return &cp, nil
}

func (r *UnavailabilityRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *UnavailabilityRepository) ListForDoctorRange(_ context.Context, doctorID uuid.UUID, from, to string) ([]*model.UnavailableBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.UnavailableBlock
	for _, block := range r.byID {
		if block.DoctorID != doctorID {
			continue
		}
		if block.Date < from || block.Date > to {
			continue
		}
		cp := *block
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type OutboxRepository struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *OutboxRepository) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for _, evt := range r.events {
		if evt.Status != model.OutboxStatusPending {
			continue
		}
		evt.Status = model.OutboxStatusProcessing
		evt.UpdatedAt = time.Now()
		cp := *evt
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) RequeueStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requeued int64
	for _, evt := range r.events {
		if evt.Status == model.OutboxStatusProcessing && evt.UpdatedAt.Before(before) {
			evt.Status = model.OutboxStatusPending
			evt.UpdatedAt = time.Now()
			requeued++
		}
	}
	return requeued, nil
}

func (r *OutboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusProcessed, nil)
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	return r.setStatus(id, model.OutboxStatusFailed, &errMsg)
}

func (r *OutboxRepository) setStatus(id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, evt := range r.events {
		if evt.ID != id {
			continue
		}
		evt.Status = status
		evt.ErrorMessage = errMsg
		evt.UpdatedAt = time.Now()
		if status == model.OutboxStatusProcessed {
			now := time.Now()
			evt.ProcessedAt = &now
		}
		if status == model.OutboxStatusFailed {
			evt.RetryCount++
		}
		return nil
	}
	return repository.ErrNotFound
}

func (r *OutboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*model.OutboxEvent
	var removed int64
	for _, evt := range r.events {
		if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, evt)
	}
	r.events = kept
	return removed, nil
}

// All returns a snapshot of every event, for tests.
func (r *OutboxRepository) All() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, evt := range r.events {
		cp := *evt
		out = append(out, &cp)
	}
	return out
}
