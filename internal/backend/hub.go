package backend

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
	"github.com/jwalitptl/hms-console/pkg/auth"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/messaging"
	"github.com/jwalitptl/hms-console/pkg/security"
)

const (
	// RevocationChannel carries session revocations between processes.
	RevocationChannel = "hms.sessions.revoked"
	revokedMessage    = "session.revoked"
)

type Config struct {
	SessionTTL time.Duration
}

// Hub is shared by every console client of the process. It owns the stores and
// routes broker revocations to the clients holding the revoked session.
type Hub struct {
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	records    repository.RecordRepository
	hasher     security.PasswordHasher
	tokens     auth.JWTService
	broker     messaging.Broker
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	holders map[uuid.UUID]map[*Client]struct{}
}

func NewHub(
	identities repository.IdentityRepository,
	sessions repository.SessionRepository,
	records repository.RecordRepository,
	hasher security.PasswordHasher,
	tokens auth.JWTService,
	broker messaging.Broker,
	cfg Config,
	l zerolog.Logger,
) *Hub {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &Hub{
		identities: identities,
		sessions:   sessions,
		records:    records,
		hasher:     hasher,
		tokens:     tokens,
		broker:     broker,
		cfg:        cfg,
		logger:     logger.Component(l, "backend"),
		now:        time.Now,
		holders:    make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// NewClient returns a client holding token, which may be empty.
func (h *Hub) NewClient(token string) *Client {
	return &Client{
		hub:   h,
		token: token,
		subs:  make(map[int]func(*model.Session)),
	}
}

// Run consumes revocations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.broker.Subscribe(ctx, RevocationChannel)
	if err != nil {
		return err
	}

	h.logger.Info().Str("channel", RevocationChannel).Msg("listening for session revocations")
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			h.handle(raw)
		}
	}
}

func (h *Hub) handle(raw []byte) {
	var msg messaging.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn().Err(err).Msg("dropping malformed broker message")
		return
	}
	if msg.Type != revokedMessage {
		return
	}
	text, _ := msg.Payload.(string)
	id, err := uuid.Parse(text)
	if err != nil {
		h.logger.Warn().Str("payload", text).Msg("dropping revocation with invalid session id")
		return
	}

	for _, c := range h.holdersOf(id) {
		c.lose(id, "revoked")
	}
}

func (h *Hub) publishRevocation(ctx context.Context, id uuid.UUID) error {
	return h.broker.Publish(ctx, RevocationChannel, messaging.Message{Type: revokedMessage, Payload: id.String()})
}

func (h *Hub) track(id uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.holders[id] == nil {
		h.holders[id] = make(map[*Client]struct{})
	}
	h.holders[id][c] = struct{}{}
}

func (h *Hub) untrack(id uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.holders[id], c)
	if len(h.holders[id]) == 0 {
		delete(h.holders, id)
	}
}

func (h *Hub) holdersOf(id uuid.UUID) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Client, 0, len(h.holders[id]))
	for c := range h.holders[id] {
		out = append(out, c)
	}
	return out
}
