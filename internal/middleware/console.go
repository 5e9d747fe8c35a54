package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/console"
)

const (
	ContextConsole = "console"

	cookieConsoleID   = "console_id"
	cookieAccessToken = "access_token"
)

type ConsoleCookieConfig struct {
	Name   string
	Secret string
	Secure bool
	MaxAge int
}

// ConsoleCookie installs the signed cookie store that carries the console id
// and the access token between requests.
func ConsoleCookie(config ConsoleCookieConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(config.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.MaxAge,
		Secure:   config.Secure,
		HttpOnly: true,
	})
	return sessions.Sessions(config.Name, store)
}

// Console binds the request to its console client, opening one if needed.
func Console(registry *console.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(cookieConsoleID).(string)
		token, _ := s.Get(cookieAccessToken).(string)

		client := registry.Open(id, token)
		if client.ID != id {
			s.Set(cookieConsoleID, client.ID)
			if err := s.Save(); err != nil {
				zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to save console cookie")
			}
		}

		c.Set(ContextConsole, client)
		c.Next()
	}
}

// ConsoleFrom returns the client bound by Console.
func ConsoleFrom(c *gin.Context) *console.Client {
	v, ok := c.Get(ContextConsole)
	if !ok {
		return nil
	}
	client, _ := v.(*console.Client)
	return client
}

// PersistToken writes the client's current access token to the cookie. Call it
// before writing a response after sign-in or sign-out.
func PersistToken(c *gin.Context) {
	client := ConsoleFrom(c)
	if client == nil {
		return
	}

	s := sessions.Default(c)
	if token := client.Backend.Token(); token != "" {
		s.Set(cookieAccessToken, token)
	} else {
		s.Delete(cookieAccessToken)
	}
	if err := s.Save(); err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to save console cookie")
	}
}
