package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/client"
	"github.com/dmitrijs2005/postkeeper/internal/client/config"
	"github.com/dmitrijs2005/postkeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/postkeeper/internal/client/services"
	"github.com/dmitrijs2005/postkeeper/internal/filex"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/netx"

	_ "modernc.org/sqlite"
)

// uploadTimeout bounds a single image PUT.
const uploadTimeout = 60 * time.Second

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	postService services.PostService
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	now         func() time.Time

	mu       sync.RWMutex
	mode     Mode
	userName string
	loggedIn bool
}

// NewApp opens the local store, builds the gRPC client and wires the
// services the REPL talks to.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.New(os.Stderr, logging.ParseLevel(c.LogLevel), false)

	if err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewPostKeeperClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	repos := client.NewRepositories(db)
	rec := reconcile.New(repos.Posts, apiClient, logger,
		reconcile.WithGrace(c.StaleGrace),
		reconcile.WithBatchSize(c.BatchSize),
	)

	as := services.NewAuthService(apiClient, db)
	ps := services.NewPostService(apiClient, repos.Posts, repos.Metadata, rec,
		netx.NewUploader(uploadTimeout), logger)

	return &App{
		config:      c,
		authService: as,
		postService: ps,
		logger:      logger.With("module", "cli"),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		now:         time.Now,
	}, nil
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// setMode switches the connectivity mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log().Info(context.Background(), "switched mode", "mode", mode)
	}
	return changed
}

func (a *App) log() logging.Logger {
	if a.logger == nil {
		return logging.Nop{}
	}
	return a.logger
}

func (a *App) writer() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loggedIn
}

func (a *App) setSession(userName string, loggedIn bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = userName
	a.loggedIn = loggedIn
}

// checkOnline pings the server once and updates the mode. When the app
// comes back online with a session, a reconcile pass runs.
func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pingCtx)
	cancel()

	if err != nil {
		if a.Mode() == ModeOnline {
			a.setMode(ModeOffline)
		}
		return
	}

	if a.setMode(ModeOnline) && a.isLoggedIn() {
		a.autoReconcile(ctx)
	}
}

func (a *App) autoReconcile(ctx context.Context) {
	results, err := a.postService.Reconcile(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.log().Warn(ctx, "reconcile after reconnect failed", "error", err)
		}
		return
	}
	for _, r := range results {
		if r.NeedsAttention() {
			a.log().Warn(ctx, "post needs attention", "local_id", r.LocalID, "outcome", r.Outcome.String(), "reason", r.Reason)
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		a.log().Warn(ctx, "online status watcher disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
