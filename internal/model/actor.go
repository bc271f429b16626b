package model

import (
	"github.com/google/uuid"
)

// Role identifies the acting user's kind. Authentication itself is an
// external collaborator; the identity arriving here is trusted as given.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsDoctor() bool {
	return a.Role == RoleDoctor
}

func (a Actor) IsPatient() bool {
	return a.Role == RolePatient
}
