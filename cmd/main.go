package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "grid_supervisor/docs"
	"grid_supervisor/internal/config"
	"grid_supervisor/internal/grid"
	"grid_supervisor/internal/handlers"
	"grid_supervisor/internal/logger"
	"grid_supervisor/internal/metrics"
	"grid_supervisor/internal/repository"
	"grid_supervisor/internal/repository/db"
	"grid_supervisor/internal/server"
	"grid_supervisor/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title                       Grid Supervisor API
// @version                     1.0
// @description                 Supervisory control of a simulated power plant and its city distribution grid.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.ErrorLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = log.Sync() }()

	database, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	engine, err := grid.NewEngine(grid.Options{
		Params:   cfg.Grid.Params(),
		Logger:   log.SugaredLogger,
		FeedSize: cfg.Grid.FeedSize,
	})
	if err != nil {
		log.Fatalw("invalid grid parameters", "err", err)
	}
	collector := metrics.New(engine.Dropped)

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(repos, service.Deps{
		Engine:  engine,
		Metrics: collector,
		Log:     log,
		Auth: service.AuthOptions{
			SigningKey: signingKey(cfg.Auth.SigningKey, log),
			TokenTTL:   cfg.Auth.TokenTTL,
		},
	})
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		Metrics:        collector.Handler(),
		StreamInterval: cfg.API.StreamInterval,
		RateLimit:      handlers.RateLimit{RPS: cfg.API.RateLimit.RPS, Burst: cfg.API.RateLimit.Burst},
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorderDone := make(chan struct{})
	go func() {
		services.Recorder.Run(ctx)
		close(recorderDone)
	}()

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("grid supervisor started", "port", cfg.Port, "tick", cfg.Grid.TickInterval)

	waitForShutdown(cancel, srv, engine, recorderDone, log)
}

// openDB initializes the SQLite database.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "grid.db")
		path = "grid.db"
	}
	return db.InitDB(path)
}

// signingKey returns the configured JWT key, or a random per-process key
// when none is set. Tokens then do not survive a restart.
func signingKey(configured string, log *logger.Logger) string {
	if configured != "" {
		return configured
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalw("failed to generate signing key", "err", err)
	}
	log.Warnw("auth.signing_key not set; using an ephemeral key")
	return hex.EncodeToString(buf)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, engine *grid.Engine, recorderDone <-chan struct{}, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// stop accepting commands first so nothing reaches a closed engine
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// no more ticks or timers; then let the recorder flush what is buffered
	engine.Close()
	cancel()

	select {
	case <-recorderDone:
	case <-ctx.Done():
		log.Warnw("recorder did not drain before timeout")
	}
}
