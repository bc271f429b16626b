package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
)

func TestNewGridDefaultDay(t *testing.T) {
	grid, err := NewGrid(DefaultConfig())
	require.NoError(t, err)

	slots := grid.Slots()
	assert.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "16:30", slots[len(slots)-1])

	assert.True(t, grid.Contains("09:30"))
	assert.False(t, grid.Contains("17:00"), "day end is exclusive")
	assert.False(t, grid.Contains("09:15"), "off-grid time")
	assert.False(t, grid.Contains("9:00"), "slots are exact strings")
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	_, err := NewGrid(Config{DayStart: "9am", DayEnd: "17:00", SlotInterval: 30 * time.Minute})
	assert.True(t, apperror.Is(err, apperror.ReasonInvalidDate))

	_, err = NewGrid(Config{DayStart: "17:00", DayEnd: "09:00", SlotInterval: 30 * time.Minute})
	assert.True(t, apperror.Is(err, apperror.ReasonInvalidDate))

	_, err = NewGrid(Config{DayStart: "09:00", DayEnd: "17:00", SlotInterval: 0})
	assert.True(t, apperror.Is(err, apperror.ReasonInvalidDate))
}

func TestSlotStart(t *testing.T) {
	grid, err := NewGrid(DefaultConfig())
	require.NoError(t, err)

	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	start, err := grid.SlotStart(day, "10:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC), start)

	_, err = grid.SlotStart(day, "08:00")
	assert.True(t, apperror.Is(err, apperror.ReasonInvalidSlot))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-09-14")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-14", FormatDate(d))

	for _, bad := range []string{"14-09-2026", "2026/09/14", "2026-13-40", "not a date"} {
		_, err := ParseDate(bad)
		assert.True(t, apperror.Is(err, apperror.ReasonInvalidDate), "input %q", bad)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("funday")
	assert.True(t, apperror.Is(err, apperror.ReasonInvalidDate))
}

func TestStartOfWeek(t *testing.T) {
	grid, err := NewGrid(DefaultConfig())
	require.NoError(t, err)

	// 2026-09-16 is a Wednesday; the week began Monday the 14th.
	wed := time.Date(2026, 9, 16, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-14", FormatDate(grid.StartOfWeek(wed)))

	mon := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-14", FormatDate(grid.StartOfWeek(mon)))
}

func TestDateArithmetic(t *testing.T) {
	a := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 9, 20, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 6, DaysBetween(a, b))
	assert.Equal(t, -6, DaysBetween(b, a))
	assert.Equal(t, "2026-09-17", FormatDate(AddDays(a, 3)))

	var seen []string
	EachDay(a, AddDays(a, 2), func(d time.Time) {
		seen = append(seen, FormatDate(d))
	})
	assert.Equal(t, []string{"2026-09-14", "2026-09-15", "2026-09-16"}, seen)
}
