package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/auth"
	"github.com/boostcampwm2025/ios02-damago/internal/catalog"
	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/handlers"
	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/models"
	"github.com/boostcampwm2025/ios02-damago/internal/push"
	"github.com/boostcampwm2025/ios02-damago/internal/repository"
	"github.com/boostcampwm2025/ios02-damago/internal/repository/memstore"
	"github.com/boostcampwm2025/ios02-damago/internal/scheduler"
	"github.com/boostcampwm2025/ios02-damago/internal/services"
)

// app holds the wired components of a running server
type app struct {
	cfg      *config.Config
	db       *pgxpool.Pool
	store    repository.Store
	queue    scheduler.Queue
	verifier *auth.JWT
	hub      *services.WSHub

	notify      *services.NotifyService
	pairs       *services.PairService
	pets        *services.PetService
	interaction *services.InteractionService
	users       *services.UserService
}

// openStore connects the configured storage driver and the matching task queue
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, scheduler.Queue, *pgxpool.Pool, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return memstore.New(), scheduler.NewMemoryQueue(cfg.Scheduler.MaxAttempts), nil, nil
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	store := repository.NewPostgresStore(db, cfg.Database.MaxTxAttempts)
	return store, scheduler.NewPostgresQueue(db, cfg.Scheduler.MaxAttempts), db, nil
}

// loadCatalog reads the content catalog from a file or an S3 object
func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	var getter catalog.ObjectGetter
	if strings.HasPrefix(cfg.Catalog.Source, "s3://") {
		client, err := catalog.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		getter = client
	}

	cat, err := catalog.Load(ctx, cfg.Catalog.Source, getter)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("source", cfg.Catalog.Source).
		Int("questions", cat.Len(models.TrackDailyQuestion)).
		Int("balance_games", cat.Len(models.TrackBalanceGame)).
		Msg("Content catalog loaded")
	return cat, nil
}

// newGateway returns the APNs gateway, or a logging stand-in when APNs is disabled
func newGateway(cfg config.APNsConfig) (push.Gateway, error) {
	if !cfg.Enabled {
		log.Warn().Msg("APNs disabled, pushes will only be logged")
		return push.LogGateway{}, nil
	}
	gateway, err := push.NewAPNsGateway(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bundle_id", cfg.BundleID).Bool("production", cfg.Production).Msg("APNs gateway ready")
	return gateway, nil
}

// newApp wires storage, catalog, push and the services
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, queue, db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := assemble(ctx, cfg, store, queue)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	a.db = db
	return a, nil
}

// assemble builds the services on top of an opened store and queue
func assemble(ctx context.Context, cfg *config.Config, store repository.Store, queue scheduler.Queue) (*app, error) {
	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gateway, err := newGateway(cfg.APNs)
	if err != nil {
		return nil, err
	}
	return assembleWith(cfg, store, queue, cat, gateway), nil
}

func assembleWith(cfg *config.Config, store repository.Store, queue scheduler.Queue, cat *catalog.Catalog, gateway push.Gateway) *app {
	hub := services.NewWSHub()
	notify := services.NewNotifyService(store, gateway, queue, hub)
	pets := services.NewPetService(store, cat, notify, queue, cfg.Game)

	return &app{
		cfg:         cfg,
		store:       store,
		queue:       queue,
		verifier:    auth.NewJWT(cfg.JWT.Secret, cfg.JWT.TokenTTL),
		hub:         hub,
		notify:      notify,
		pairs:       services.NewPairService(store, cat, notify, cfg.Game),
		pets:        pets,
		interaction: services.NewInteractionService(store, cat, notify, cfg.Game),
		users:       services.NewUserService(store, pets, notify),
	}
}

// workerPool dispatches due hunger and push retry tasks
func (a *app) workerPool() *scheduler.WorkerPool {
	return scheduler.NewWorkerPool(a.queue, map[string]scheduler.Handler{
		scheduler.QueueHunger:    a.pets.HandleHungerTask,
		scheduler.QueuePushRetry: a.notify.HandleRetryTask,
	}, scheduler.Options{
		Workers:      a.cfg.Scheduler.Workers,
		PollInterval: a.cfg.Scheduler.PollInterval,
		Lease:        a.cfg.Scheduler.Lease,
	})
}

// router builds the HTTP routes
func (a *app) router() http.Handler {
	userHandler := handlers.NewUserHandler(a.users, a.pairs)
	pairHandler := handlers.NewPairHandler(a.pairs)
	petHandler := handlers.NewPetHandler(a.pets)
	interactionHandler := handlers.NewInteractionHandler(a.interaction)
	taskHandler := handlers.NewTaskHandler(a.pets, a.notify, a.pairs)
	wsHandler := handlers.NewWebSocketHandler(a.hub, a.verifier, a.users)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(a.verifier))

		r.Post("/pairing-code", pairHandler.IssueCode)
		r.Post("/couple", pairHandler.Connect)

		r.Get("/me", userHandler.GetInfo)
		r.Patch("/me", userHandler.UpdateProfile)
		r.Put("/me/tokens", userHandler.UpdateTokens)
		r.Delete("/me", userHandler.Withdraw)
		r.Get("/me/connection", userHandler.ConnectionStatus)
		r.Post("/poke", userHandler.Poke)

		r.Post("/pets/{pet_id}/feed", petHandler.Feed)
		r.Post("/pets/active", petHandler.Select)
		r.Post("/pets/draw", petHandler.Draw)

		r.Get("/interactions/{track}/current", interactionHandler.Current)
		r.Post("/interactions/{track}/answers", interactionHandler.Submit)
		r.Get("/interactions/{track}/history", interactionHandler.History)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.TaskAuth(a.cfg.Tasks.Secret))

		r.Post("/hunger", taskHandler.Hunger)
		r.Post("/push-retry", taskHandler.PushRetry)
		r.Post("/live-status/update", taskHandler.UpdateLiveStatus)
		r.Post("/live-status/start", taskHandler.StartLiveStatus)
		r.Post("/coins", taskHandler.AdjustCoins)
	})

	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// close releases the database pool if one was opened
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
