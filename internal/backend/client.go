package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
	apperrors "github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/security"
)

const invalidCredentials = "invalid login credentials"

// Client is the backend connection of one console client. It holds at most one
// access token and fans session changes out to its subscribers.
type Client struct {
	hub *Hub

	mu      sync.Mutex
	token   string
	current *model.Session
	expiry  *time.Timer
	subs    map[int]func(*model.Session)
	nextSub int
	closed  bool
}

// Token returns the access token the client currently holds.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.Session, error) {
	identity, err := c.hub.identities.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Auth(invalidCredentials, nil)
	}
	if err != nil {
		return nil, apperrors.Query("failed to look up identity", err)
	}
	if err := c.hub.hasher.Compare(identity.PasswordHash, password); err != nil {
		return nil, apperrors.Auth(invalidCredentials, nil)
	}

	now := c.hub.now().UTC()
	s := &model.Session{
		ID:        uuid.New(),
		UserID:    identity.ID,
		Email:     identity.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.hub.cfg.SessionTTL),
	}
	if err := c.hub.sessions.Create(ctx, s); err != nil {
		return nil, apperrors.Query("failed to create session", err)
	}

	token, err := c.hub.tokens.GenerateAccessToken(s)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to sign access token: %w", err))
	}
	s.Token = token

	c.adopt(s)
	c.hub.logger.Debug().Str("session_id", s.ID.String()).Str("user_id", s.Subject()).Msg("session issued")
	c.notify(s)

	out := *s
	return &out, nil
}

func (c *Client) CreateIdentity(ctx context.Context, email, password string, metadata model.JSONMap) (*model.Identity, error) {
	hash, err := c.hub.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return nil, apperrors.Auth(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	identity := &model.Identity{Email: email, PasswordHash: hash, Metadata: metadata}
	if err := c.hub.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Auth("user already registered", err)
		}
		return nil, apperrors.Auth("failed to create identity", err)
	}
	return identity, nil
}

// GetCurrentSession returns the held session if it is still valid, or nil.
// A token that no longer resolves to a live session is discarded.
func (c *Client) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}

	claims, err := c.hub.tokens.ValidateToken(token)
	if err != nil {
		c.hub.logger.Debug().Err(err).Msg("discarding invalid access token")
		c.drop(token)
		return nil, nil
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		c.hub.logger.Debug().Err(err).Msg("discarding access token with malformed session id")
		c.drop(token)
		return nil, nil
	}

	stored, err := c.hub.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		c.drop(token)
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Query("failed to load session", err)
	}
	if !stored.Valid(c.hub.now()) {
		c.drop(token)
		return nil, nil
	}

	stored.Token = token
	c.adopt(stored)

	out := *stored
	return &out, nil
}

// SubscribeSessionChanges registers fn for every session change of this client.
// fn receives nil when the session ends.
func (c *Client) SubscribeSessionChanges(fn func(*model.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	if c.subs != nil {
		c.subs[id] = fn
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
		})
	}
}

// InvalidateSession revokes the held session. The local token is cleared even
// when the revocation cannot be stored or published.
func (c *Client) InvalidateSession(ctx context.Context) error {
	c.mu.Lock()
	s, token := c.current, c.token
	c.clearLocked()
	c.mu.Unlock()

	if s == nil && token == "" {
		return nil
	}

	var id uuid.UUID
	if s != nil {
		id = s.ID
	} else if claims, err := c.hub.tokens.ValidateToken(token); err == nil {
		if parsed, err := uuid.Parse(claims.ID); err == nil {
			id = parsed
		}
	}

	var errs []error
	if id != uuid.Nil {
		if err := c.hub.sessions.Revoke(ctx, id, c.hub.now().UTC()); err != nil && !errors.Is(err, repository.ErrNotFound) {
			errs = append(errs, err)
		}
		if err := c.hub.publishRevocation(ctx, id); err != nil {
			c.hub.logger.Warn().Err(err).Str("session_id", id.String()).Msg("failed to publish revocation")
			errs = append(errs, err)
		}
	}

	if s != nil {
		c.notify(nil)
	}

	if len(errs) > 0 {
		return apperrors.Query("failed to invalidate session", errors.Join(errs...))
	}
	return nil
}

func (c *Client) QueryOne(ctx context.Context, table string, filter model.Filter) (model.Row, error) {
	row, err := c.hub.records.QueryOne(ctx, table, filter)
	if err != nil {
		return nil, recordError("query", table, err)
	}
	return row, nil
}

func (c *Client) QueryMany(ctx context.Context, table string, filter model.Filter, order *model.Order, limit int) ([]model.Row, error) {
	rows, err := c.hub.records.QueryMany(ctx, table, filter, order, limit)
	if err != nil {
		return nil, recordError("query", table, err)
	}
	return rows, nil
}

func (c *Client) CountWhere(ctx context.Context, table string, filter model.Filter) (int64, error) {
	n, err := c.hub.records.CountWhere(ctx, table, filter)
	if err != nil {
		return 0, recordError("count", table, err)
	}
	return n, nil
}

func (c *Client) InsertRow(ctx context.Context, table string, payload model.Row) (model.Row, error) {
	row, err := c.hub.records.Insert(ctx, table, payload)
	if err != nil {
		return nil, recordError("insert into", table, err)
	}
	return row, nil
}

func (c *Client) UpdateRow(ctx context.Context, table, id string, payload model.Row) (model.Row, error) {
	row, err := c.hub.records.Update(ctx, table, id, payload)
	if err != nil {
		return nil, recordError("update", table, err)
	}
	return row, nil
}

func (c *Client) DeleteRow(ctx context.Context, table, id string) error {
	if err := c.hub.records.Delete(ctx, table, id); err != nil {
		return recordError("delete from", table, err)
	}
	return nil
}

// Close drops the token locally and detaches every subscriber. It does not revoke the session.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.current != nil {
		c.hub.untrack(c.current.ID, c)
	}
	c.stopExpiryLocked()
	c.subs = nil
}

func recordError(op, table string, err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidQuery):
		return apperrors.BadRequest(err.Error(), err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(table+" row", err)
	default:
		return apperrors.Query(fmt.Sprintf("failed to %s %s", op, table), err)
	}
}

func (c *Client) adopt(s *model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.current != nil && c.current.ID != s.ID {
		c.hub.untrack(c.current.ID, c)
	}
	c.stopExpiryLocked()

	c.current = s
	c.token = s.Token
	c.hub.track(s.ID, c)

	id := s.ID
	c.expiry = time.AfterFunc(s.ExpiresAt.Sub(c.hub.now()), func() {
		c.lose(id, "expired")
	})
}

// lose ends the current session if it is still id and tells subscribers.
func (c *Client) lose(id uuid.UUID, reason string) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	c.mu.Unlock()

	c.hub.logger.Debug().Str("session_id", id.String()).Str("reason", reason).Msg("session lost")
	c.notify(nil)
}

func (c *Client) drop(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.clearLocked()
	}
}

func (c *Client) clearLocked() {
	if c.current != nil {
		c.hub.untrack(c.current.ID, c)
	}
	c.stopExpiryLocked()
	c.current = nil
	c.token = ""
}

func (c *Client) stopExpiryLocked() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
}

// notify calls subscribers in registration order, outside the client lock.
func (c *Client) notify(s *model.Session) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*model.Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		if s == nil {
			fn(nil)
			continue
		}
		cp := *s
		fn(&cp)
	}
}
