package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/auth"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
)

// Run loads configuration and dispatches the subcommand in os.Args:
// serve (default), migrate, or token <account-id>
func Run() {
	configPath := os.Getenv("DAMAGO_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		serve(cfg)
	case "migrate":
		if err := migrate(cfg); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		log.Info().Msg("Schema applied")
	case "token":
		if len(args) < 2 {
			log.Fatal().Msg("usage: damago token <account-id>")
		}
		token, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.TokenTTL).Issue(args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to issue token")
		}
		fmt.Println(token)
	default:
		log.Fatal().Str("command", command).Msg("Unknown command")
	}
}

// serve runs the HTTP server and the task workers until SIGINT or SIGTERM
func serve(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.close()

	if ps, ok := a.store.(*repository.PostgresStore); ok {
		if err := ps.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
	}

	pool := a.workerPool()
	pool.Start(ctx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	pool.Stop()

	log.Info().Msg("Server exited")
}

// migrate applies the embedded schema to the configured database
func migrate(cfg *config.Config) error {
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires the %s storage driver, got %s", config.DriverPostgres, cfg.Storage.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return repository.NewPostgresStore(db, cfg.Database.MaxTxAttempts).Migrate(ctx)
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Task-Secret")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
