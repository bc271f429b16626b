package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an API error payload. Reason carries the rejection
// code so clients can branch on it instead of parsing messages.
type Error struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends a structured rejection. Unknown errors are
// masked as a generic unavailability rather than leaking internals.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := err.(*apperror.Error)
	if !ok {
		appErr = apperror.Unavailable(err)
	}

	c.JSON(appErr.StatusCode(), Response{
		Success: false,
		Error: &Error{
			Reason:  string(appErr.Reason),
			Message: appErr.Message,
		},
	})
}
