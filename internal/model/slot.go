package model

// SlotStatus classifies one (date, time) cell of a doctor's calendar.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked"
	SlotUnavailable SlotStatus = "unavailable"
	SlotExpired     SlotStatus = "expired"
)

// SlotView is the derived per-slot classification. It is a pure
// function of appointments, unavailable blocks and the current time,
// and is never persisted.
type SlotView struct {
	Time   string     `json:"time"`
	Status SlotStatus `json:"status"`
}

// DaySchedule groups one date's slot views in grid order.
// AvailableCount counts available slots only, for calendar-day badges.
type DaySchedule struct {
	Date           string     `json:"date"`
	Slots          []SlotView `json:"slots"`
	AvailableCount int        `json:"available_count"`
}

// SlotAt returns the view for a given slot time, if present.
func (d *DaySchedule) SlotAt(slot string) (SlotView, bool) {
	for _, v := range d.Slots {
		if v.Time == slot {
			return v, true
		}
	}
	return SlotView{}, false
}
