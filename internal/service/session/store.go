package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/model"
	apperrors "github.com/jwalitptl/hms-console/pkg/errors"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/metrics"
)

// ErrClosed is returned by Wait once the store has been torn down.
var ErrClosed = errors.New("session store closed")

const profileTable = "user_profiles"

// Backend is the part of the backend collaborator the store consumes.
type Backend interface {
	Authenticate(ctx context.Context, email, password string) (*model.Session, error)
	CreateIdentity(ctx context.Context, email, password string, metadata model.JSONMap) (*model.Identity, error)
	GetCurrentSession(ctx context.Context) (*model.Session, error)
	SubscribeSessionChanges(fn func(*model.Session)) (unsubscribe func())
	InvalidateSession(ctx context.Context) error
	QueryOne(ctx context.Context, table string, filter model.Filter) (model.Row, error)
	InsertRow(ctx context.Context, table string, payload model.Row) (model.Row, error)
}

// NoticeSink receives transient user-visible notices.
type NoticeSink interface {
	Push(model.Notice)
}

type State int

const (
	Uninitialized State = iota
	Checking
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Snapshot is a read-only view of the store.
type Snapshot struct {
	State      State          `json:"-"`
	Session    *model.Session `json:"session"`
	Role       model.Role     `json:"role"`
	Loading    bool           `json:"loading"`
	Generation uint64         `json:"-"`
}

// Store is the single source of truth for who is signed in and as what role.
// Every check is tagged with a generation; only the newest generation may apply.
type Store struct {
	backend Backend
	notices NoticeSink
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu          sync.Mutex
	state       State
	session     *model.Session
	role        model.Role
	gen         uint64
	changed     chan struct{}
	unsubscribe func()
	closed      bool
}

func NewStore(backend Backend, notices NoticeSink, l zerolog.Logger, m *metrics.Metrics) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		backend: backend,
		notices: notices,
		logger:  logger.Component(l, "session_store"),
		metrics: m,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
	}
}

// Initialize subscribes to session changes and resolves any existing session.
// Only the first call has an effect, and it does not check the session again
// if another operation already moved the store out of Uninitialized.
func (s *Store) Initialize(ctx context.Context) {
	s.once.Do(func() {
		unsubscribe := s.backend.SubscribeSessionChanges(s.handleChange)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			unsubscribe()
			return
		}
		s.unsubscribe = unsubscribe
		// a sign-in that ran before Initialize already settled the state
		settled := s.state != Uninitialized
		s.mu.Unlock()
		if settled {
			return
		}

		ctx, cancel := s.bound(ctx)
		defer cancel()

		gen := s.begin()
		if !s.apply(gen, Checking, nil, model.RoleNone) {
			return
		}

		current, err := s.backend.GetCurrentSession(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to fetch current session")
			current = nil
		}
		if current == nil {
			s.apply(gen, Unauthenticated, nil, model.RoleNone)
			return
		}

		if err := s.resolve(ctx, gen, current); err != nil {
			s.logger.Warn().Err(err).Str("user_id", current.Subject()).Msg("session has no usable profile")
		}
	})
}

// SignUp creates the identity and its profile. It never changes store state.
// When the profile insert fails the identity is left without a profile.
func (s *Store) SignUp(ctx context.Context, req model.SignUpRequest) (*model.Identity, error) {
	identity, err := s.backend.CreateIdentity(ctx, req.Email, req.Password, req.Metadata())
	if err != nil {
		if apperrors.IsAuth(err) {
			return nil, err
		}
		return nil, apperrors.Auth("sign up failed", err)
	}

	profile := model.UserProfile{
		UserID:    identity.ID,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     identity.Email,
	}
	if _, err := s.backend.InsertRow(ctx, profileTable, profile.Row()); err != nil {
		s.logger.Error().Err(err).Str("user_id", identity.ID.String()).Msg("identity created without profile")
		return nil, apperrors.Profile("failed to create profile", err)
	}

	return identity, nil
}

// SignIn authenticates and resolves the role. Bad credentials leave state untouched.
// A missing profile still signs in, with role none and a notice.
func (s *Store) SignIn(ctx context.Context, email, password string) (Snapshot, error) {
	sess, err := s.backend.Authenticate(ctx, email, password)
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Auth("sign in failed", err)
		}
		return s.Current(), err
	}

	snap := s.Current()
	if !tracks(snap, sess) || snap.State != Authenticated {
		ctx, cancel := s.bound(ctx)
		defer cancel()
		if err := s.resolve(ctx, s.begin(), sess); err != nil {
			s.logger.Warn().Err(err).Str("user_id", sess.Subject()).Msg("signed in without usable profile")
		}
		snap = s.Current()
	}

	if snap.State == Authenticated && snap.Role == model.RoleNone {
		s.notify(model.NoticeWarning, "Your account has no role assigned; access is limited.")
	}
	return snap, nil
}

// SignOut always ends in Unauthenticated. A failed remote invalidation is
// returned as a notice, never as an error. Calling it while signed out is a no-op.
func (s *Store) SignOut(ctx context.Context) *model.Notice {
	s.mu.Lock()
	if s.closed || (s.state == Unauthenticated && s.session == nil) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.backend.InvalidateSession(ctx)
	s.apply(s.begin(), Unauthenticated, nil, model.RoleNone)

	if err != nil {
		s.logger.Warn().Err(err).Msg("remote sign-out failed, cleared locally")
		return s.notify(model.NoticeWarning, "You have been signed out, but the server could not confirm it.")
	}
	return nil
}

// Current returns the session, role and loading flag.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until the store is no longer loading.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, ch, closed := s.snapshotLocked(), s.changed, s.closed
		s.mu.Unlock()

		if closed {
			return snap, ErrClosed
		}
		if !snap.Loading {
			return snap, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Close abandons in-flight lookups and detaches from the backend.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	close(s.changed)
	s.mu.Unlock()

	s.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) handleChange(sess *model.Session) {
	s.mu.Lock()
	snap, closed := s.snapshotLocked(), s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return
	case sess == nil && snap.State == Unauthenticated:
		return
	case sess != nil && tracks(snap, sess) && (snap.State == Authenticated || snap.State == Checking):
		return
	}

	gen := s.begin()
	if sess == nil {
		s.apply(gen, Unauthenticated, nil, model.RoleNone)
		return
	}
	if err := s.resolve(s.ctx, gen, sess); err != nil {
		s.logger.Warn().Err(err).Str("user_id", sess.Subject()).Msg("session has no usable profile")
	}
}

// resolve moves to Checking for sess, looks up the profile, then settles on
// Authenticated(role). Lookup failures settle on role none.
func (s *Store) resolve(ctx context.Context, gen uint64, sess *model.Session) error {
	if !s.apply(gen, Checking, sess, model.RoleNone) {
		return nil
	}

	role, err := s.lookupRole(ctx, sess)
	s.apply(gen, Authenticated, sess, role)
	return err
}

func (s *Store) lookupRole(ctx context.Context, sess *model.Session) (model.Role, error) {
	row, err := s.backend.QueryOne(ctx, profileTable, model.Filter{model.Eq("user_id", sess.Subject())})
	if err != nil {
		return model.RoleNone, apperrors.Profile("failed to load profile", err)
	}
	if row == nil {
		return model.RoleNone, apperrors.Profile("profile not found", nil)
	}

	raw := row.String("role")
	role, ok := model.ParseRole(raw)
	if !ok {
		return model.RoleNone, apperrors.Profile(fmt.Sprintf("unknown role %q", raw), nil)
	}
	return role, nil
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// apply commits a transition if gen is still the newest generation.
func (s *Store) apply(gen uint64, state State, sess *model.Session, role model.Role) bool {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		latest := s.gen
		s.mu.Unlock()
		s.metrics.StaleSessionResult()
		s.logger.Debug().Uint64("generation", gen).Uint64("latest", latest).Str("state", state.String()).
			Msg("discarding stale session result")
		return false
	}

	s.state = state
	s.session = sess
	s.role = role
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.metrics.SessionTransition(state.String())
	s.logger.Debug().Uint64("generation", gen).Str("state", state.String()).Str("role", role.String()).
		Msg("session state changed")
	return true
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Role:       s.role,
		Loading:    s.state == Uninitialized || s.state == Checking,
		Generation: s.gen,
	}
	if s.session != nil {
		cp := *s.session
		snap.Session = &cp
	}
	return snap
}

// bound derives a context that is also cancelled when the store closes.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Store) notify(level model.NoticeLevel, message string) *model.Notice {
	n := model.Notice{Level: level, Message: message, At: s.now().UTC()}
	if s.notices != nil {
		s.notices.Push(n)
	}
	return &n
}

func tracks(snap Snapshot, sess *model.Session) bool {
	return snap.Session != nil && sess != nil && snap.Session.ID == sess.ID
}
