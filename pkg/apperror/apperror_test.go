package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{InvalidSlot("25:00"), http.StatusBadRequest},
		{InvalidDate("bad"), http.StatusBadRequest},
		{RangeTooLarge(31), http.StatusBadRequest},
		{InvalidReason(), http.StatusBadRequest},
		{BadRequest("bad id", nil), http.StatusBadRequest},
		{TooLate("notice"), http.StatusUnprocessableEntity},
		{TooLateToCancel("notice"), http.StatusUnprocessableEntity},
		{SlotTaken("10:00"), http.StatusConflict},
		{ConflictsWithBooking("10:00"), http.StatusConflict},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("appointment"), http.StatusNotFound},
		{Unavailable(errors.New("db down")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), "reason %s", tc.err.Reason)
	}
}

func TestReasonOf(t *testing.T) {
	err := SlotTaken("10:00")
	assert.Equal(t, ReasonSlotTaken, ReasonOf(err))
	assert.True(t, Is(err, ReasonSlotTaken))
	assert.False(t, Is(err, ReasonTooLate))

	wrapped := fmt.Errorf("booking failed: %w", err)
	assert.Equal(t, ReasonSlotTaken, ReasonOf(wrapped))

	assert.Equal(t, Reason(""), ReasonOf(errors.New("plain")))
	assert.Equal(t, Reason(""), ReasonOf(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
