package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/backend"
	"github.com/jwalitptl/hms-console/internal/service/session"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/metrics"
)

type Config struct {
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// Registry keeps one Client per console id. Idle clients expire and are closed.
type Registry struct {
	hub     *backend.Hub
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	clients *cache.Cache

	mu sync.Mutex
}

func NewRegistry(hub *backend.Hub, cfg Config, l zerolog.Logger, m *metrics.Metrics) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	r := &Registry{
		hub:     hub,
		cfg:     cfg,
		logger:  logger.Component(l, "console_registry"),
		metrics: m,
		clients: cache.New(cfg.IdleTimeout, cfg.CleanupInterval),
	}
	r.clients.OnEvicted(func(id string, v interface{}) {
		v.(*Client).Close()
		r.metrics.ConsoleClientClosed()
		r.logger.Debug().Str("console_id", id).Msg("console client closed")
	})
	return r
}

// Open returns the live client for id, refreshing its idle deadline, or
// creates one restoring token. The returned client's ID may differ from id.
func (r *Registry) Open(id, token string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if v, ok := r.clients.Get(id); ok {
			// Replace fails when the janitor evicted the client after Get
			if err := r.clients.Replace(id, v, cache.DefaultExpiration); err == nil {
				return v.(*Client)
			}
		}
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	notices := &NoticeQueue{}
	bc := r.hub.NewClient(token)
	c := &Client{
		ID:        id,
		Backend:   bc,
		Store:     session.NewStore(bc, notices, r.logger.With().Str("console_id", id).Logger(), r.metrics),
		Notices:   notices,
		CreatedAt: time.Now().UTC(),
	}
	r.clients.SetDefault(id, c)
	r.metrics.ConsoleClientOpened()

	go c.Store.Initialize(context.Background())

	r.logger.Debug().Str("console_id", id).Bool("restored", token != "").Msg("console client opened")
	return c
}

// Get returns the client for id without creating one.
func (r *Registry) Get(id string) (*Client, bool) {
	v, ok := r.clients.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Remove closes and forgets the client for id.
func (r *Registry) Remove(id string) {
	r.clients.Delete(id)
}

func (r *Registry) Len() int {
	return r.clients.ItemCount()
}

// Close closes every client.
func (r *Registry) Close() {
	for id := range r.clients.Items() {
		r.clients.Delete(id)
	}
}
