package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/console"
	"github.com/jwalitptl/hms-console/internal/email"
	"github.com/jwalitptl/hms-console/internal/middleware"
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/internal/service/session"
	"github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/httputil"
	"github.com/jwalitptl/hms-console/pkg/logger"
)

const mailTimeout = 10 * time.Second

type Handler struct {
	mailer email.Service
	logger zerolog.Logger
}

func NewHandler(mailer email.Service, l zerolog.Logger) *Handler {
	return &Handler{mailer: mailer, logger: logger.Component(l, "auth_handler")}
}

// RegisterRoutes mounts the public auth routes. limit guards credential endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, limit ...gin.HandlerFunc) {
	r.POST("/signup", chain(limit, h.SignUp)...)
	r.POST("/login", chain(limit, h.Login)...)
	r.POST("/logout", h.Logout)
	r.GET("/session", h.Session)
}

func chain(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	return append(append(out, pre...), h)
}

// SessionResponse is what the console needs to render its layout.
type SessionResponse struct {
	Session    *model.Session         `json:"session"`
	Role       model.Role             `json:"role"`
	Loading    bool                   `json:"loading"`
	Header     string                 `json:"header,omitempty"`
	Navigation []model.NavigationItem `json:"navigation"`
	Landing    string                 `json:"landing"`
}

func NewSessionResponse(snap session.Snapshot) SessionResponse {
	resp := SessionResponse{
		Session:    snap.Session,
		Role:       snap.Role,
		Loading:    snap.Loading,
		Navigation: capability.For(snap.Role).Navigation,
		Landing:    capability.LoginPath,
	}
	if snap.Session != nil {
		resp.Header = snap.Session.Email + " (" + snap.Role.String() + ")"
		resp.Landing = capability.Landing(snap.Role)
	}
	return resp
}

func (h *Handler) SignUp(c *gin.Context) {
	client := middleware.ConsoleFrom(c)

	var req model.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	identity, err := client.Store.SignUp(c.Request.Context(), req)
	if err != nil {
		fail(c, client, err)
		return
	}

	go h.welcome(identity.Email, req.FirstName)

	httputil.RespondWithStatus(c, http.StatusCreated, gin.H{
		"user":     identity,
		"redirect": capability.LoginPath,
	}, client.Notices.Drain()...)
}

func (h *Handler) welcome(to, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()
	if err := h.mailer.SendWelcome(ctx, to, name); err != nil {
		h.logger.Warn().Err(err).Str("to", to).Msg("welcome mail failed")
	}
}

func (h *Handler) Login(c *gin.Context) {
	client := middleware.ConsoleFrom(c)

	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	snap, err := client.Store.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, client, err)
		return
	}

	middleware.PersistToken(c)
	httputil.RespondWithSuccess(c, NewSessionResponse(snap), client.Notices.Drain()...)
}

// Logout always succeeds locally. A failed remote sign-out comes back as a notice.
func (h *Handler) Logout(c *gin.Context) {
	client := middleware.ConsoleFrom(c)

	client.Store.SignOut(c.Request.Context())
	middleware.PersistToken(c)

	httputil.RespondWithSuccess(c, gin.H{"redirect": capability.LoginPath}, client.Notices.Drain()...)
}

func (h *Handler) Session(c *gin.Context) {
	client := middleware.ConsoleFrom(c)

	snap, err := client.Snapshot(c.Request.Context())
	if err != nil && err != session.ErrClosed {
		// deadline hit while loading; report the loading snapshot
		h.logger.Debug().Err(err).Msg("session still loading")
	}

	httputil.RespondWithSuccess(c, NewSessionResponse(snap), client.Notices.Drain()...)
}

// fail reports a sign-in or sign-up failure as an error plus a notice.
func fail(c *gin.Context, client *console.Client, err error) {
	message := "Something went wrong. Please try again."
	if appErr, ok := errors.As(err); ok {
		message = appErr.Message
	}
	client.Notices.Push(model.Notice{Level: model.NoticeError, Message: message, At: time.Now().UTC()})
	httputil.RespondWithError(c, err, client.Notices.Drain()...)
}
