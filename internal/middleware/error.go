package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/httputil"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself. Bind errors that are not AppErrors are 400.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		logger := zerolog.Ctx(c.Request.Context())
		for _, e := range c.Errors {
			logger.Error().
				Err(e.Err).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Interface("meta", e.Meta).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		err := last.Err
		if _, ok := apperrors.As(err); !ok && last.IsType(gin.ErrorTypeBind) {
			err = apperrors.BadRequest("invalid JSON body", err)
		}
		httputil.RespondWithError(c, err)
	}
}
