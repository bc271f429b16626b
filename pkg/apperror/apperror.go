package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason is a closed set of rejection codes. Handlers render these
// verbatim so clients can give precise feedback instead of a generic
// failure message.
type Reason string

const (
	ReasonInvalidSlot          Reason = "INVALID_SLOT"
	ReasonInvalidDate          Reason = "INVALID_DATE"
	ReasonRangeTooLarge        Reason = "RANGE_TOO_LARGE"
	ReasonTooLate              Reason = "TOO_LATE"
	ReasonTooLateToCancel      Reason = "TOO_LATE_TO_CANCEL"
	ReasonSlotTaken            Reason = "SLOT_TAKEN"
	ReasonInvalidReason        Reason = "INVALID_REASON"
	ReasonForbidden            Reason = "FORBIDDEN"
	ReasonNotFound             Reason = "NOT_FOUND"
	ReasonConflictsWithBooking Reason = "CONFLICTS_WITH_BOOKING"
	ReasonUnavailable          Reason = "UNAVAILABLE"

	// ReasonBadRequest covers transport-level malformed input (bad
	// JSON, unparseable ids) that never reaches the domain taxonomy.
	ReasonBadRequest Reason = "BAD_REQUEST"
)

// Error is a structured rejection. Business-rule outcomes travel as
// values of this type; only infrastructure failures fall outside the
// taxonomy and get wrapped as ReasonUnavailable.
type Error struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps a rejection reason to its HTTP status. Consumed by
// the error-handling middleware.
func (e *Error) StatusCode() int {
	switch e.Reason {
	case ReasonInvalidSlot, ReasonInvalidDate, ReasonRangeTooLarge, ReasonInvalidReason, ReasonBadRequest:
		return http.StatusBadRequest
	case ReasonTooLate, ReasonTooLateToCancel:
		return http.StatusUnprocessableEntity
	case ReasonSlotTaken, ReasonConflictsWithBooking:
		return http.StatusConflict
	case ReasonForbidden:
		return http.StatusForbidden
	case ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func New(reason Reason, message string) *Error {
	return &Error{Reason: reason, Message: message}
}

func Wrap(reason Reason, message string, err error) *Error {
	return &Error{Reason: reason, Message: message, Err: err}
}

func InvalidSlot(slot string) *Error {
	return New(ReasonInvalidSlot, fmt.Sprintf("slot %q is not on the booking grid", slot))
}

func InvalidDate(message string) *Error {
	return New(ReasonInvalidDate, message)
}

func RangeTooLarge(maxDays int) *Error {
	return New(ReasonRangeTooLarge, fmt.Sprintf("date range exceeds the maximum of %d days", maxDays))
}

func TooLate(message string) *Error {
	return New(ReasonTooLate, message)
}

func TooLateToCancel(message string) *Error {
	return New(ReasonTooLateToCancel, message)
}

func SlotTaken(slot string) *Error {
	return New(ReasonSlotTaken, fmt.Sprintf("slot %s is no longer available", slot))
}

func InvalidReason() *Error {
	return New(ReasonInvalidReason, "a visit reason is required")
}

func Forbidden(message string) *Error {
	return New(ReasonForbidden, message)
}

func NotFound(resource string) *Error {
	return New(ReasonNotFound, fmt.Sprintf("%s not found", resource))
}

func BadRequest(message string, err error) *Error {
	return Wrap(ReasonBadRequest, message, err)
}

func ConflictsWithBooking(slot string) *Error {
	return New(ReasonConflictsWithBooking, fmt.Sprintf("slot %s holds a live appointment", slot))
}

func Unavailable(err error) *Error {
	return Wrap(ReasonUnavailable, "service temporarily unavailable", err)
}

// ReasonOf extracts the rejection reason from an error chain, or ""
// when the error is not a structured rejection.
func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

// Is reports whether err carries the given reason.
func Is(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}
