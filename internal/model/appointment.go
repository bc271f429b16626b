package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// IsHolding reports whether the status occupies its slot: at most one
// holding appointment may exist per (doctor, date, slot).
func (s AppointmentStatus) IsHolding() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// Appointment represents one scheduled visit. Records are never hard
// deleted while referenced by notifications; the lifecycle moves only
// through Status.
type Appointment struct {
	Base
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID     uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ClinicID     uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	VisitDate    string            `db:"visit_date" json:"visit_date"`
	Slot         string            `db:"slot" json:"slot"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Reason       string            `db:"reason" json:"reason"`
	Diagnosis    *string           `db:"diagnosis" json:"diagnosis,omitempty"`
	Referral     *string           `db:"referral" json:"referral,omitempty"`
	Notes        *string           `db:"notes" json:"notes,omitempty"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	ClinicID  uuid.UUID `json:"clinic_id" validate:"required"`
	VisitDate string    `json:"visit_date" validate:"required"`
	Slot      string    `json:"slot" validate:"required"`
	Reason    string    `json:"reason" validate:"max=1000"`
}

type CompleteAppointmentRequest struct {
	Diagnosis string `json:"diagnosis" validate:"max=2000"`
	Referral  string `json:"referral" validate:"max=2000"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	ClinicID  uuid.UUID
	Status    AppointmentStatus
	FromDate  string
	ToDate    string
}
