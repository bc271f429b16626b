package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

// Emitter translates appointment state transitions into outbound
// notification events using the transactional-outbox pattern: events
// are stored first and shipped asynchronously by the outbox worker.
type Emitter interface {
	AppointmentCreated(ctx context.Context, appt *model.Appointment) error
	AppointmentCancelled(ctx context.Context, appt *model.Appointment, cancelledBy model.Actor) error
	AppointmentUpdated(ctx context.Context, appt *model.Appointment) error
}

type emitter struct {
	outbox repository.OutboxRepository
}

func NewEmitter(outbox repository.OutboxRepository) Emitter {
	return &emitter{outbox: outbox}
}

func (e *emitter) AppointmentCreated(ctx context.Context, appt *model.Appointment) error {
	msg := fmt.Sprintf("Appointment booked for %s at %s", appt.VisitDate, appt.Slot)
	if err := e.emit(ctx, model.NotificationCreated, appt, appt.DoctorID, msg); err != nil {
		return err
	}
	return e.emit(ctx, model.NotificationCreated, appt, appt.PatientID, msg)
}

// AppointmentCancelled notifies the counterpart of whoever cancelled:
// the doctor when the patient reneges, the patient when the doctor
// withdraws.
func (e *emitter) AppointmentCancelled(ctx context.Context, appt *model.Appointment, cancelledBy model.Actor) error {
	recipient := appt.DoctorID
	msg := fmt.Sprintf("The patient cancelled the appointment on %s at %s", appt.VisitDate, appt.Slot)
	if cancelledBy.ID == appt.DoctorID {
		recipient = appt.PatientID
		msg = fmt.Sprintf("The doctor cancelled your appointment on %s at %s", appt.VisitDate, appt.Slot)
	}
	return e.emit(ctx, model.NotificationCancelled, appt, recipient, msg)
}

func (e *emitter) AppointmentUpdated(ctx context.Context, appt *model.Appointment) error {
	msg := fmt.Sprintf("Appointment on %s at %s was updated", appt.VisitDate, appt.Slot)
	return e.emit(ctx, model.NotificationUpdated, appt, appt.PatientID, msg)
}

func (e *emitter) emit(ctx context.Context, typ model.NotificationType, appt *model.Appointment, recipientID uuid.UUID, msg string) error {
	event := &model.NotificationEvent{
		ID:            uuid.New(),
		Type:          typ,
		AppointmentID: appt.ID,
		RecipientID:   recipientID,
		Message:       msg,
		CreatedAt:     time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	outboxEvent := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: fmt.Sprintf("appointment.%s", typ),
		Payload:   payload,
	}
	if err := e.outbox.Create(ctx, outboxEvent); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
