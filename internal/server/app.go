// Package server initializes and runs the NeuroRecall backend.
// It opens the database, applies migrations, wires the services and
// runs the HTTP API, the gRPC API and the cleanup scheduler until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/config"
	"github.com/dmitrijs2005/neurorecall/internal/server/httpapi"
	"github.com/dmitrijs2005/neurorecall/internal/server/mailer"
	"github.com/dmitrijs2005/neurorecall/internal/server/ratelimit"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/neurorecall/internal/server/scheduler"
	"github.com/dmitrijs2005/neurorecall/internal/server/services"
	"github.com/dmitrijs2005/neurorecall/internal/server/storage"
	"github.com/dmitrijs2005/neurorecall/internal/server/transcribe"

	gs "github.com/dmitrijs2005/neurorecall/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	counter     ratelimit.Counter
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.New(c.LogFormat, os.Stdout, slog.LevelInfo)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, repomanager: rm}
	app.counter = app.newCounter()

	return app, nil
}

// newCounter picks the rate-limit store. The PostgreSQL one is shared by
// every server process.
func (app *App) newCounter() ratelimit.Counter {
	if app.config.RateLimitBackend == config.RateLimitPostgres {
		return ratelimit.NewStoreCounter(app.db, app.repomanager.Attempts)
	}
	return ratelimit.NewMemoryCounter()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

type components struct {
	users       *services.UserService
	resets      *services.PasswordResetService
	scores      *services.ScoreService
	photos      *services.PhotoService
	maintenance *services.MaintenanceService
}

func (app *App) buildServices(ctx context.Context) (*components, error) {
	c := app.config

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}
	tr := transcribe.NewClient(c.SpeechEndpoint, c.SpeechAPIKey, c.SpeechLanguage, app.logger)
	ml := mailer.New(c, app.logger)

	loginLimiter := ratelimit.NewLimiter(app.counter, c.MaxLoginAttempts, c.LoginLockoutDuration)
	resetLimiter := ratelimit.NewLimiter(app.counter, c.MaxResetAttempts, c.ResetRateLimitWindow)

	var pruners []ratelimit.Pruner
	if p, ok := app.counter.(ratelimit.Pruner); ok {
		pruners = append(pruners, p)
	}
	retention := max(c.LoginLockoutDuration, c.ResetRateLimitWindow)

	return &components{
		users:       services.NewUserService(app.db, app.repomanager, c, loginLimiter, app.logger),
		resets:      services.NewPasswordResetService(app.db, app.repomanager, c, ml, resetLimiter, app.logger),
		scores:      services.NewScoreService(app.db, app.repomanager, store, tr, app.logger),
		photos:      services.NewPhotoService(app.db, app.repomanager, store, app.logger),
		maintenance: services.NewMaintenanceService(app.db, app.repomanager, retention, app.logger, pruners...),
	}, nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, svc *components) {

	s := httpapi.NewServer(app.config, app.logger, httpapi.Services{
		Users:  svc.users,
		Resets: svc.resets,
		Scores: svc.scores,
		Photos: svc.photos,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc, svc *components) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, svc.users, svc.scores)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run migrates the schema and serves until a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	svc, err := app.buildServices(ctx)
	if err != nil {
		return err
	}

	sched := scheduler.New(svc.maintenance, app.config.CleanupInterval, app.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("scheduler start error: %w", err)
	}
	defer sched.Stop()

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, svc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc, svc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
