package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hms-console/internal/middleware"
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/internal/service/dashboard"
	"github.com/jwalitptl/hms-console/pkg/httputil"
)

type Handler struct {
	aggregator *dashboard.Aggregator
}

func NewHandler(aggregator *dashboard.Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes mounts the dashboard behind its route's guard.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	route, _ := capability.RouteByID(capability.RouteDashboard)
	r.GET(route.Path, middleware.RequireRoute(route), h.Dashboard)
}

type Response struct {
	Greeting string `json:"greeting"`
	model.DashboardSnapshot
}

// Dashboard recomputes the snapshot on every visit.
func (h *Handler) Dashboard(c *gin.Context) {
	client := middleware.ConsoleFrom(c)
	snap, _ := middleware.SnapshotFrom(c)

	result := h.aggregator.Compute(c.Request.Context(), client.Backend, snap.Role, snap.Session.Subject())

	httputil.RespondWithSuccess(c, Response{
		Greeting:          "Welcome, " + snap.Role.Title(),
		DashboardSnapshot: result,
	}, client.Notices.Drain()...)
}
