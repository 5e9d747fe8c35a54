package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *Error         `json:"error,omitempty"`
	Notices []model.Notice `json:"notices,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ContextRequestID is the gin context key of the request id.
const ContextRequestID = "request_id"

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}, notices ...model.Notice) {
	RespondWithStatus(c, http.StatusOK, data, notices...)
}

// RespondWithStatus sends a success response with an explicit status
func RespondWithStatus(c *gin.Context, status int, data interface{}, notices ...model.Notice) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Notices: notices,
	})
}

// RespondWithError sends an error response. Application errors keep their
// message and status; anything else is a 500.
func RespondWithError(c *gin.Context, err error, notices ...model.Notice) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.StatusCode()
		message = appErr.Message
	}

	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Message: message,
			TraceID: c.GetString(ContextRequestID),
		},
		Notices: notices,
	})
}
