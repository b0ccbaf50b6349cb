package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"onboarding-bot/internal/common/config"
	"onboarding-bot/internal/common/database"
	"onboarding-bot/internal/common/discord"
	apphttp "onboarding-bot/internal/common/http"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/observability"
	"onboarding-bot/internal/dispatch"
	"onboarding-bot/internal/ledger"
	"onboarding-bot/internal/scheduler"
	"onboarding-bot/internal/tracker"

	rv "onboarding-bot/internal/workers/departments/resolve-verdict"
	sc "onboarding-bot/internal/workers/departments/submit-choice"
	wm "onboarding-bot/internal/workers/onboarding/welcome-member"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting onboarding bot...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore := openLedgerStore(ctx, cfg, zapLog)
	defer closeStore()

	welcomed := ledger.Open(ctx, store, log)
	requests := tracker.New()
	directory := cfg.DepartmentDirectory()

	httpClient := apphttp.NewClient(config.GetDuration(cfg.Discord.RequestTimeout))
	session, err := discord.NewSession(cfg.Discord.Token, httpClient.HTTPClient(), log)
	if err != nil {
		zapLog.Fatal("discord session creation failed", zap.Error(err))
	}
	zapLog.Info("Discord session created", zap.Duration("requestTimeout", httpClient.Timeout()))

	var handlers dispatch.Handlers
	if config.IsWorkerEnabled(cfg, wm.TaskType) {
		handlers.Welcome = wm.NewHandler(wm.LoadConfig(cfg), directory, welcomed, session, log)
	}
	if config.IsWorkerEnabled(cfg, sc.TaskType) {
		handlers.Choice = sc.NewHandler(sc.LoadConfig(cfg), directory, requests, session, log)
	}
	if config.IsWorkerEnabled(cfg, rv.TaskType) {
		handlers.Verdict = rv.NewHandler(rv.LoadConfig(cfg), directory, requests, session, log)
	}
	dispatcher := dispatch.New(handlers, obs, log)

	zapLog.Info("Workers registered",
		zap.Strings("departments", cfg.DepartmentNames()),
		zap.Bool("welcome", handlers.Welcome != nil),
		zap.Bool("submit", handlers.Choice != nil),
		zap.Bool("resolve", handlers.Verdict != nil),
	)

	var sweeper *scheduler.Scheduler
	if cfg.Requests.TTL > 0 {
		ttl := time.Duration(cfg.Requests.TTL) * time.Second
		sweeper, err = scheduler.NewScheduler(requests, cfg.Requests.SweepSchedule, ttl, log)
		if err != nil {
			zapLog.Fatal("stale request sweep registration failed", zap.Error(err))
		}
		sweeper.Start()
	}

	var ready atomic.Bool
	server := startHealthServer(cfg.Server.Address, &ready, zapLog)

	session.Subscribe(dispatcher.Sink(ctx))
	err = retryWithBackoff(session.Open, cfg.Discord.ConnectRetries, 2*time.Second, zapLog, "Discord gateway connection")
	if err != nil {
		zapLog.Fatal("discord gateway failed after retries", zap.Error(err))
	}
	ready.Store(true)
	zapLog.Info("Discord gateway connected", zap.String("botUserId", session.BotUserID()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping bot...")
	ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := session.Close(); err != nil {
		zapLog.Error("Error closing Discord session", zap.Error(err))
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		zapLog.Warn("In-flight events did not finish before shutdown", zap.Error(err))
	}
	stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Onboarding bot stopped gracefully",
		zap.Int("welcomedMembers", welcomed.Len()),
		zap.Int("openRequests", requests.Len()),
	)
}

// openLedgerStore builds the configured welcome ledger backend. The returned
// func releases its connection.
func openLedgerStore(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (ledger.Store, func()) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		var redis *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
		return ledger.NewRedisStore(redis.Client, cfg.Ledger.RedisKey), func() { redis.Close() }

	case config.LedgerBackendPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		store := ledger.NewPostgresStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("welcome ledger schema creation failed", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")
		return store, func() { pg.Close() }

	default:
		zapLog.Info("Using file welcome ledger", zap.String("path", cfg.Ledger.Path))
		return ledger.NewFileStore(cfg.Ledger.Path), func() {}
	}
}

func startHealthServer(addr string, ready *atomic.Bool, zapLog *zap.Logger) *http.Server {
	server := &http.Server{Addr: addr, Handler: healthMux(ready), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func healthMux(ready *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ready", http.StatusOK
		if !ready.Load() {
			status, code = "connecting", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
