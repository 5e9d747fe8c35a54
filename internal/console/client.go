package console

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/hms-console/internal/backend"
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/session"
)

const maxQueuedNotices = 20

// Client is one operator console: a backend client holding its token and the
// session store built on it.
type Client struct {
	ID        string
	Backend   *backend.Client
	Store     *session.Store
	Notices   *NoticeQueue
	CreatedAt time.Time

	closeOnce sync.Once
}

// Snapshot waits for the store to settle and returns its view.
func (c *Client) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return c.Store.Wait(ctx)
}

// Close tears down the store first so no lookup outlives the backend client.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Store.Close()
		c.Backend.Close()
	})
}

// NoticeQueue buffers transient notices until the next response drains them.
type NoticeQueue struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (q *NoticeQueue) Push(n model.Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, n)
	if over := len(q.notices) - maxQueuedNotices; over > 0 {
		q.notices = q.notices[over:]
	}
}

// Drain returns and clears the queued notices, oldest first.
func (q *NoticeQueue) Drain() []model.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	return out
}
