package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

const slotLayout = "15:04"

// Grid enumerates the fixed set of bookable time-of-day slots for a
// working day and provides date arithmetic. It is pure and stateless.
type Grid struct {
	slots    []string
	index    map[string]int
	interval time.Duration
	weekday  time.Weekday
}

// Config describes the service day. Times are "HH:MM" strings.
type Config struct {
	DayStart     string        `mapstructure:"day_start"`
	DayEnd       string        `mapstructure:"day_end"`
	SlotInterval time.Duration `mapstructure:"slot_interval"`
	WeekStart    time.Weekday  `mapstructure:"week_start"`
}

// DefaultConfig is a 09:00-17:00 day in 30 minute increments with
// weeks starting on Monday.
func DefaultConfig() Config {
	return Config{
		DayStart:     "09:00",
		DayEnd:       "17:00",
		SlotInterval: 30 * time.Minute,
		WeekStart:    time.Monday,
	}
}

// NewGrid builds the slot grid for a service day. The end time is
// exclusive: a 09:00-17:00 day with 30m slots ends at 16:30.
func NewGrid(cfg Config) (*Grid, error) {
	start, err := time.Parse(slotLayout, cfg.DayStart)
	if err != nil {
		return nil, apperror.Wrap(apperror.ReasonInvalidDate, "malformed day start", err)
	}
	end, err := time.Parse(slotLayout, cfg.DayEnd)
	if err != nil {
		return nil, apperror.Wrap(apperror.ReasonInvalidDate, "malformed day end", err)
	}
	if cfg.SlotInterval <= 0 || !start.Before(end) {
		return nil, apperror.InvalidDate("service day must be a non-empty window with a positive slot interval")
	}

	g := &Grid{
		index:    make(map[string]int),
		interval: cfg.SlotInterval,
		weekday:  cfg.WeekStart,
	}
	for t := start; t.Before(end); t = t.Add(cfg.SlotInterval) {
		s := t.Format(slotLayout)
		g.index[s] = len(g.slots)
		g.slots = append(g.slots, s)
	}
	return g, nil
}

// Slots returns the ordered slot times of a service day.
func (g *Grid) Slots() []string {
	out := make([]string, len(g.slots))
	copy(out, g.slots)
	return out
}

// Contains reports whether the slot belongs to the grid.
func (g *Grid) Contains(slot string) bool {
	_, ok := g.index[slot]
	return ok
}

// SlotStart combines a date and a slot into the visit's start instant.
func (g *Grid) SlotStart(date time.Time, slot string) (time.Time, error) {
	if !g.Contains(slot) {
		return time.Time{}, apperror.InvalidSlot(slot)
	}
	t, _ := time.Parse(slotLayout, slot)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// ParseWeekday maps a lowercase English day name to its weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(name, d.String()) {
			return d, nil
		}
	}
	return 0, apperror.InvalidDate("unknown weekday " + strconv.Quote(name))
}

// ParseDate parses a calendar date, rejecting malformed input.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperror.Wrap(apperror.ReasonInvalidDate, "malformed date, expected YYYY-MM-DD", err)
	}
	return d, nil
}

// FormatDate renders a date in the wire format.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// StartOfWeek returns the most recent week-start on or before date.
func (g *Grid) StartOfWeek(date time.Time) time.Time {
	diff := (int(date.Weekday()) - int(g.weekday) + 7) % 7
	return Truncate(date).AddDate(0, 0, -diff)
}

// AddDays shifts a date by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// DaysBetween counts whole days from 'from' to 'to'; negative when the
// range is inverted.
func DaysBetween(from, to time.Time) int {
	return int(Truncate(to).Sub(Truncate(from)).Hours() / 24)
}

// Truncate drops the time-of-day component.
func Truncate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// EachDay calls fn with every date from 'from' through 'to' inclusive.
func EachDay(from, to time.Time, fn func(time.Time)) {
	for d := Truncate(from); !d.After(Truncate(to)); d = AddDays(d, 1) {
		fn(d)
	}
}
