package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UnavailableBlock is a doctor-declared blackout for one calendar day:
// either the whole day or a set of specific slots. Blocks live
// independently of appointment records and are consulted read-only by
// the availability resolver.
type UnavailableBlock struct {
	Base
	DoctorID  uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Date      string         `db:"block_date" json:"date"`
	IsFullDay bool           `db:"is_full_day" json:"is_full_day"`
	Slots     pq.StringArray `db:"slots" json:"slots,omitempty"`
	Reason    *string        `db:"reason" json:"reason,omitempty"`
}

// Covers reports whether the block makes the given slot unbookable.
func (b *UnavailableBlock) Covers(slot string) bool {
	if b.IsFullDay {
		return true
	}
	for _, s := range b.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

type DeclareUnavailabilityRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	Date      string    `json:"date" validate:"required"`
	IsFullDay bool      `json:"is_full_day"`
	Slots     []string  `json:"slots"`
	Reason    string    `json:"reason" validate:"max=500"`
}
