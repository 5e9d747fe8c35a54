package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-console/internal/model"
)

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(ctx context.Context, s *model.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockSessionRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweepUsesCurrentTime(t *testing.T) {
	repo := &MockSessionRepository{}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.On("DeleteExpiredBefore", mock.Anything, now).Return(int64(3), nil).Once()

	w := NewSessionSweeper(repo, time.Minute, zerolog.Nop(), nil)
	w.now = func() time.Time { return now }

	n, err := w.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	repo.AssertExpectations(t)
}

func TestSweepWrapsError(t *testing.T) {
	repo := &MockSessionRepository{}
	cause := errors.New("connection refused")
	repo.On("DeleteExpiredBefore", mock.Anything, mock.Anything).Return(int64(0), cause)

	_, err := NewSessionSweeper(repo, time.Minute, zerolog.Nop(), nil).Sweep(context.Background())

	assert.ErrorIs(t, err, cause)
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	repo := &MockSessionRepository{}
	swept := make(chan struct{}, 10)
	repo.On("DeleteExpiredBefore", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}).
		Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSessionSweeper(repo, 10*time.Millisecond, zerolog.Nop(), nil).Start(ctx)
		close(done)
	}()

	<-swept
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
