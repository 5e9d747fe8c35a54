package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/hms-console/internal/backend"
	"github.com/jwalitptl/hms-console/internal/console"
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/pkg/auth"
	"github.com/jwalitptl/hms-console/pkg/messaging"
	"github.com/jwalitptl/hms-console/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRegistry(t *testing.T) *console.Registry {
	t.Helper()
	broker := messaging.NewMemoryBroker()
	hub := backend.NewHub(nil, nil, nil, security.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTService("secret", "test"), broker, backend.Config{}, zerolog.Nop())
	r := console.NewRegistry(hub, console.Config{}, zerolog.Nop(), nil)
	t.Cleanup(func() {
		r.Close()
		broker.Close()
	})
	return r
}

func TestRequireRouteRedirectsAnonymousToLogin(t *testing.T) {
	registry := newTestRegistry(t)
	route, ok := capability.RouteByID(capability.RoutePatients)
	require.True(t, ok)

	engine := gin.New()
	engine.Use(ConsoleCookie(ConsoleCookieConfig{Name: "hms_console", Secret: "cookie-secret"}), Console(registry))
	engine.GET(route.Path, RequireRoute(route), func(c *gin.Context) {
		c.String(http.StatusOK, "patients")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, capability.LoginPath, w.Header().Get("Location"))
	assert.NotEqual(t, "patients", w.Body.String())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Redirect string `json:"redirect"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, capability.LoginPath, body.Data.Redirect)
	assert.Equal(t, 1, registry.Len())

	// the console cookie brings the same client back
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.AddCookie(cookies[0])
	engine.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, registry.Len())
}

func TestRequestIDKeepsValidHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(zerolog.Nop()))
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	engine.ServeHTTP(w, req)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "<script>")
	engine.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderXRequestID))
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig([]string{"https://console.example.com"})))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://console.example.com")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitIsPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1, Idle: time.Minute})
	engine := gin.New()
	engine.Use(rl.RateLimit())
	engine.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		engine.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestSizeLimitRejectsLargeBodies(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(DefaultSizeLimitConfig(8)))
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestValidationRejectsUnknownRole(t *testing.T) {
	require.NoError(t, RegisterValidators(DefaultValidationConfig()))

	engine := gin.New()
	engine.Use(Validation(DefaultValidationConfig()))
	engine.POST("/signup", func(c *gin.Context) {
		var req model.SignUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusCreated)
	})

	body := `{"email":"a@b.co","password":"secret-pw","role":"janitor","first_name":"A","last_name":"B"}`
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Errors []ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "role", resp.Errors[0].Field)
	assert.Equal(t, "Unknown role", resp.Errors[0].Message)

	body = strings.Replace(body, "janitor", "nurse", 1)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code)
}
