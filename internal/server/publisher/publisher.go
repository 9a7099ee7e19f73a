// Package publisher runs the server's periodic jobs: publishing posts whose
// time has come and purging expired refresh tokens.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/robfig/cron/v3"
)

// CleanupSchedule is when expired refresh tokens are purged.
const CleanupSchedule = "@hourly"

// runTimeout bounds a single job run.
const runTimeout = time.Minute

// Posts publishes due posts.
type Posts interface {
	PublishDue(ctx context.Context) (published, failed int, err error)
}

// Tokens purges expired refresh tokens.
type Tokens interface {
	CleanupRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// Manager owns the cron engine and the jobs registered with it.
type Manager struct {
	engine *cron.Cron
	posts  Posts
	tokens Tokens
	logger logging.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func New(posts Posts, tokens Tokens, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With("module", "publisher")
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		engine: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		posts:  posts,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJobs schedules publishing with publishSchedule, a cron spec such as
// "@every 30s", and token cleanup with CleanupSchedule.
func (m *Manager) RegisterJobs(publishSchedule string) error {
	if _, err := m.engine.AddFunc(publishSchedule, m.publish); err != nil {
		return fmt.Errorf("invalid publish schedule %q: %w", publishSchedule, err)
	}
	if _, err := m.engine.AddFunc(CleanupSchedule, m.cleanup); err != nil {
		return fmt.Errorf("invalid cleanup schedule: %w", err)
	}
	return nil
}

func (m *Manager) Start() {
	m.logger.Info(m.ctx, "publisher started")
	m.engine.Start()
}

// Stop cancels running jobs and waits for them to return.
func (m *Manager) Stop() {
	m.cancel()
	<-m.engine.Stop().Done()
	m.logger.Info(context.Background(), "publisher stopped")
}

func (m *Manager) publish() {
	ctx, cancel := context.WithTimeout(m.ctx, runTimeout)
	defer cancel()

	if _, _, err := m.posts.PublishDue(ctx); err != nil {
		m.logger.Error(ctx, "publish run failed", "error", err)
	}
}

func (m *Manager) cleanup() {
	ctx, cancel := context.WithTimeout(m.ctx, runTimeout)
	defer cancel()

	n, err := m.tokens.CleanupRefreshTokens(ctx, m.now())
	if err != nil {
		m.logger.Error(ctx, "refresh token cleanup failed", "error", err)
		return
	}
	if n > 0 {
		m.logger.Info(ctx, "expired refresh tokens removed", "count", n)
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
