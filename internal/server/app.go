// Package server initializes and runs the vault application: storage,
// migrations, crypto, services, the HTTP endpoint, and graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/threelizards/safe-variables/internal/cryptox"
	"github.com/threelizards/safe-variables/internal/logging"
	"github.com/threelizards/safe-variables/internal/server/audit"
	"github.com/threelizards/safe-variables/internal/server/auth"
	"github.com/threelizards/safe-variables/internal/server/config"
	"github.com/threelizards/safe-variables/internal/server/httpapi"
	"github.com/threelizards/safe-variables/internal/server/ratelimit"
	"github.com/threelizards/safe-variables/internal/server/repositories/repomanager"
	"github.com/threelizards/safe-variables/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	limiter *ratelimit.Limiter
	api     *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, repos, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := repos.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cipher, err := cryptox.NewCipher([]byte(c.EncryptionKey))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	codec := auth.NewTokenCodec([]byte(c.SecretKey), c.SessionLifetime)
	limiter := ratelimit.New()
	recorder := audit.NewRecorder(logger)

	authSvc := services.NewAuthService(db, repos, codec, limiter, recorder, logger)
	vaultSvc := services.NewVaultService(db, repos, cipher, recorder, logger)

	api := httpapi.NewServer(authSvc, vaultSvc, logger, c.SessionLifetime)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		limiter: limiter,
		api:     api,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.api.Handler(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	purgeInterval := app.config.RateLimitPurgeInterval
	if purgeInterval <= 0 {
		purgeInterval = 5 * time.Minute
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.limiter.Run(ctx, purgeInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "app stopped")
}
