// Package app wires the application together.
// app.go is the composition root: it opens the DB pool and the device store,
// creates repositories, services and handlers, and assembles the HTTP server
// and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api"
	"letrasamigas.es/progress-service/internal/api/middleware"
	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/db/device"
	"letrasamigas.es/progress-service/internal/db/postgres"
	"letrasamigas.es/progress-service/internal/features/admin"
	"letrasamigas.es/progress-service/internal/features/exercises"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/features/profiles"
	"letrasamigas.es/progress-service/internal/features/streak"
	"letrasamigas.es/progress-service/internal/jobs"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// App holds every long-lived component.
type App struct {
	Server    *http.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Redis     *redis.Client // nil when device state lives in memory
	limiter   *middleware.RateLimiter
	chats     *notify.Dispatcher // nil when Telegram is off
}

// New creates and initializes the application.
// Order matters: components depend on each other.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Database ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// === 2. Device store for anonymous sessions ===
	var (
		rdb          *redis.Client
		localStreaks streak.Store
		localPoints  points.Store
	)
	if cfg.RedisAddr != "" {
		rdb, err = device.NewClient(ctx, cfg)
		if err != nil {
			pool.Close()
			return nil, err
		}
		store := device.NewStore(rdb, cfg.DeviceStoreTTL)
		localStreaks, localPoints = store, store
	} else {
		log.Warn("REDIS_ADDR is empty, anonymous progress is kept in memory")
		localStreaks, localPoints = streak.NewMemoryStore(), points.NewMemoryStore()
	}

	// === 3. Telegram (optional) ===
	// Reminders send inline to record delivery. Request-path notifications
	// go through the dispatcher.
	var (
		sender     notify.Sender
		chatSender notify.Sender
		dispatcher *notify.Dispatcher
	)
	if cfg.TelegramEnabled() {
		if tg := newTelegram(ctx, cfg); tg != nil {
			sender = tg
			dispatcher = notify.NewDispatcher(tg, notify.DefaultSendTimeout)
			chatSender = dispatcher
		}
	}

	// === 4. Repositories ===
	profileRepo := profiles.NewRepository(pool)
	streakRepo := streak.NewRepository(pool)
	pointsRepo := points.NewRepository(pool)
	exerciseRepo := exercises.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 5. Services ===
	profileService := profiles.NewService(profileRepo)
	streakService := streak.NewService(streakRepo, localStreaks, streakRepo, cfg)
	pointsService := points.NewService(pointsRepo, localPoints, pointsRepo)
	exerciseService := exercises.NewService(exerciseRepo, pointsService, streakService)
	adminService := admin.NewService(adminRepo, pointsService, cfg)

	// === 6. HTTP ===
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Verifier: session.NewVerifier(cfg.AuthJWTSecret),
		Limiter:  limiter,
		Chats:    profileService,
		Sender:   chatSender,
		Health:   healthCheck(pool, rdb),
		Features: []api.Registrar{
			streak.NewHandler(streakService),
			points.NewHandler(pointsService, cfg.ReviewRewardPoints, cfg.Location()),
			profiles.NewHandler(profileService, streakService, pointsService),
			exercises.NewHandler(exerciseService),
		},
		Admin: admin.NewHandler(adminService),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// === 7. Scheduler ===
	scheduler := jobs.NewScheduler(cfg, streakService, pointsService, sender)

	return &App{
		Server:    server,
		Scheduler: scheduler,
		DB:        pool,
		Redis:     rdb,
		limiter:   limiter,
		chats:     dispatcher,
	}, nil
}

// newTelegram creates the bot client and confirms the token with getMe.
// Any failure disables Telegram delivery instead of stopping the service.
func newTelegram(ctx context.Context, cfg *config.Config) *notify.Telegram {
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramRatePerSecond)
	if err != nil {
		log.WithError(err).Warn("telegram disabled")
		return nil
	}

	meCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	username, err := tg.Username(meCtx)
	if err != nil {
		log.WithError(err).Warn("telegram token rejected, telegram disabled")
		return nil
	}
	log.Infof("telegram authorized as @%s", username)
	return tg
}

func healthCheck(pool *pgxpool.Pool, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// cancelled or the server fails. Shutdown waits up to shutdownTimeout for
// in-flight requests.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", a.Server.Addr).Info("HTTP server listening")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases the connections.
func (a *App) Close() {
	a.limiter.Close()
	if a.chats != nil {
		a.chats.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis client")
		}
	}
	a.DB.Close()
}
