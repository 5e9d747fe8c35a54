package records

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-console/internal/middleware"
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/httputil"
)

// Handler serves the uniform list/create/update/delete screens of every
// entity route, each behind its own guard.
type Handler struct {
	routes []capability.Route
}

func NewHandler(routes []capability.Route) *Handler {
	return &Handler{routes: routes}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	for _, route := range h.routes {
		if route.Table == "" {
			continue
		}
		g := r.Group(route.Path, middleware.RequireRoute(route))
		table := route.Table
		g.GET("", func(c *gin.Context) { h.List(c, table) })
		g.POST("", func(c *gin.Context) { h.Create(c, table) })
		g.PUT("/:id", func(c *gin.Context) { h.Update(c, table) })
		g.DELETE("/:id", func(c *gin.Context) { h.Delete(c, table) })
	}
}

func (h *Handler) List(c *gin.Context, table string) {
	client := middleware.ConsoleFrom(c)

	rows, err := client.Backend.QueryMany(c.Request.Context(), table, nil, model.NewestFirst, 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	if rows == nil {
		rows = []model.Row{}
	}
	httputil.RespondWithSuccess(c, rows, client.Notices.Drain()...)
}

func (h *Handler) Create(c *gin.Context, table string) {
	client := middleware.ConsoleFrom(c)

	var payload model.Row
	if err := c.ShouldBindJSON(&payload); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid JSON body", err))
		return
	}

	row, err := client.Backend.InsertRow(c.Request.Context(), table, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, row, client.Notices.Drain()...)
}

func (h *Handler) Update(c *gin.Context, table string) {
	client := middleware.ConsoleFrom(c)

	id, ok := rowID(c)
	if !ok {
		return
	}
	var payload model.Row
	if err := c.ShouldBindJSON(&payload); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid JSON body", err))
		return
	}

	row, err := client.Backend.UpdateRow(c.Request.Context(), table, id, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, row, client.Notices.Drain()...)
}

func (h *Handler) Delete(c *gin.Context, table string) {
	client := middleware.ConsoleFrom(c)

	id, ok := rowID(c)
	if !ok {
		return
	}
	if err := client.Backend.DeleteRow(c.Request.Context(), table, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func rowID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid id", err))
		return "", false
	}
	return id, true
}

// fail answers with the error and tells the operator the action failed.
func (h *Handler) fail(c *gin.Context, err error) {
	client := middleware.ConsoleFrom(c)
	client.Notices.Push(model.Notice{Level: model.NoticeError, Message: "The request could not be completed.", At: time.Now().UTC()})
	httputil.RespondWithError(c, err, client.Notices.Drain()...)
}
