// Package server wires storage, services and the gRPC, HTTP and publisher
// runtimes into one process and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/config"
	"github.com/dmitrijs2005/postkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/postkeeper/internal/server/publisher"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postkeeper/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/postkeeper/internal/server/grpc"
)

// runner is a component that serves until its context is cancelled.
type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	postService *services.PostService
	media       *services.MediaService

	grpc      runner
	http      runner
	publisher *publisher.Manager
}

// NewApp opens the database, applies migrations and builds every component.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, logging.ParseLevel(c.LogLevel), true)

	db, err := repomanager.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	media := services.NewMediaService(c)
	us := services.NewUserService(db, rm, c)
	ps := services.NewPostService(db, rm, media, logger)

	pub := publisher.New(ps, us, logger)
	if err := pub.RegisterJobs(c.PublishSchedule); err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		postService: ps,
		media:       media,
		grpc:        gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, ps, media, c.SecretKey),
		http:        httpapi.NewServer(c.EndpointAddrHTTP, ps, c.SecretKey, logger),
		publisher:   pub,
	}, nil
}

// Run starts all components and blocks until ctx is cancelled or one of
// them fails; the others are then stopped.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")
	defer app.db.Close()

	app.publisher.Start()
	defer app.publisher.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.http.Run(ctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
