package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/metrics"
)

// Backend is the read side of the backend collaborator.
type Backend interface {
	CountWhere(ctx context.Context, table string, filter model.Filter) (int64, error)
	QueryMany(ctx context.Context, table string, filter model.Filter, order *model.Order, limit int) ([]model.Row, error)
}

type Config struct {
	NotificationLimit int
	// QueryTimeout bounds each sub-query. Zero means no bound.
	QueryTimeout time.Duration
}

// Outcome is the result of one sub-query: a count or rows on success, Err on failure.
type Outcome struct {
	Count int64
	Rows  []model.Row
	Err   error
}

type Aggregator struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAggregator(cfg Config, l zerolog.Logger, m *metrics.Metrics) *Aggregator {
	if cfg.NotificationLimit < 1 {
		cfg.NotificationLimit = capability.DefaultNotificationLimit
	}
	return &Aggregator{
		cfg:     cfg,
		logger:  logger.Component(l, "dashboard"),
		metrics: m,
		now:     time.Now,
	}
}

// Plan returns the role's dashboard plan with the configured notification limit applied.
func (a *Aggregator) Plan(role model.Role) []model.QuerySpec {
	plan := capability.For(role).DashboardPlan
	out := make([]model.QuerySpec, len(plan))
	for i, q := range plan {
		if q.Kind == model.QueryNotifications {
			q.Limit = a.cfg.NotificationLimit
		}
		out[i] = q
	}
	return out
}

// Compute issues every read of the role's plan concurrently and folds the
// results once all have finished. Failed reads degrade to zero or empty.
func (a *Aggregator) Compute(ctx context.Context, backend Backend, role model.Role, subject string) model.DashboardSnapshot {
	plan := a.Plan(role)
	outcomes := make([]Outcome, len(plan))

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range plan {
		i, q := i, q
		g.Go(func() error {
			outcomes[i] = a.run(ctx, backend, q, subject)
			return nil
		})
	}
	_ = g.Wait()

	snap := Fold(role, plan, outcomes, a.now().UTC())
	if len(snap.Failures) > 0 {
		a.logger.Warn().Str("role", role.String()).Strs("failed", snap.Failures).Msg("dashboard computed with failed queries")
	}
	return snap
}

func (a *Aggregator) run(ctx context.Context, backend Backend, q model.QuerySpec, subject string) Outcome {
	if a.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.QueryTimeout)
		defer cancel()
	}

	filter := q.Filter.Bind(subject)
	start := time.Now()

	var out Outcome
	switch q.Kind {
	case model.QueryNotifications:
		out.Rows, out.Err = backend.QueryMany(ctx, q.Table, filter, q.Order, q.Limit)
	default:
		out.Count, out.Err = backend.CountWhere(ctx, q.Table, filter)
	}

	a.metrics.ObserveDashboardQuery(q.Key, time.Since(start), out.Err)
	if out.Err != nil {
		a.logger.Warn().Err(out.Err).Str("query", q.Key).Str("table", q.Table).Msg("dashboard query failed")
	}
	return out
}

// Fold composes a snapshot from plan and outcomes, which are index-aligned.
// A failed count is zero, a failed feed is empty, and either is listed in Failures.
func Fold(role model.Role, plan []model.QuerySpec, outcomes []Outcome, at time.Time) model.DashboardSnapshot {
	snap := model.DashboardSnapshot{
		Role:                role,
		Counters:            map[model.CounterKey]int64{},
		RecentNotifications: []model.Notification{},
		GeneratedAt:         at,
	}

	for i, q := range plan {
		var out Outcome
		if i < len(outcomes) {
			out = outcomes[i]
		}
		if out.Err != nil {
			snap.Failures = append(snap.Failures, q.Key)
		}

		switch q.Kind {
		case model.QueryNotifications:
			if out.Err != nil {
				continue
			}
			for _, row := range out.Rows {
				snap.RecentNotifications = append(snap.RecentNotifications, model.NotificationFromRow(row))
			}
		default:
			if out.Err != nil {
				snap.Counters[model.CounterKey(q.Key)] = 0
				continue
			}
			snap.Counters[model.CounterKey(q.Key)] = out.Count
		}
	}

	snap.UnreadNotifications = len(snap.RecentNotifications)
	return snap
}
