package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type unavailabilityRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewUnavailabilityRepository(db *sqlx.DB) repository.UnavailabilityRepository {
	return &unavailabilityRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
