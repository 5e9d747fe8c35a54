package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/internal/service/guard"
	"github.com/jwalitptl/hms-console/internal/service/session"
	"github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/httputil"
)

const ContextSnapshot = "session_snapshot"

// RequireRoute gates a protected route. It waits for the console's session to
// settle, then allows, or redirects to the login route.
func RequireRoute(route capability.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := ConsoleFrom(c)
		if client == nil {
			httputil.RespondWithError(c, errors.Internal(nil))
			return
		}

		snap, err := client.Snapshot(c.Request.Context())
		if err == session.ErrClosed {
			snap = session.Snapshot{State: session.Unauthenticated}
		}

		decision := guard.Evaluate(guard.Input{
			Session:      snap.Session,
			Role:         snap.Role,
			Loading:      snap.Loading,
			RouteID:      route.ID,
			AllowedRoles: route.AllowedRoles,
		})

		switch decision.Outcome {
		case guard.Allow:
			c.Set(ContextSnapshot, snap)
			c.Next()
		case guard.Deny:
			c.Header("Location", decision.Redirect)
			c.AbortWithStatusJSON(http.StatusFound, httputil.Response{
				Error: &httputil.Error{
					Code:    http.StatusFound,
					Message: "sign in with a role that may open " + route.Path,
					TraceID: c.GetString(ContextRequestID),
				},
				Data:    gin.H{"redirect": decision.Redirect},
				Notices: client.Notices.Drain(),
			})
		default:
			// still resolving when the request deadline hit
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, httputil.Response{
				Error: &httputil.Error{
					Code:    http.StatusServiceUnavailable,
					Message: "session is still being resolved",
					TraceID: c.GetString(ContextRequestID),
				},
			})
		}
	}
}

// SnapshotFrom returns the session snapshot RequireRoute admitted the request with.
func SnapshotFrom(c *gin.Context) (session.Snapshot, bool) {
	v, ok := c.Get(ContextSnapshot)
	if !ok {
		return session.Snapshot{}, false
	}
	snap, ok := v.(session.Snapshot)
	return snap, ok
}
