package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EngOREOO/whats-app-front/internal/api"
	"github.com/EngOREOO/whats-app-front/internal/cache"
	"github.com/EngOREOO/whats-app-front/internal/client"
	"github.com/EngOREOO/whats-app-front/internal/config"
	"github.com/EngOREOO/whats-app-front/internal/dispatch"
	"github.com/EngOREOO/whats-app-front/internal/model"
	"github.com/EngOREOO/whats-app-front/internal/registry"
	"github.com/EngOREOO/whats-app-front/internal/repo"
	"github.com/EngOREOO/whats-app-front/internal/session"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The delivery archive is optional; without POSTGRES_URL job history
	// lives in memory only.
	var deliveries repo.DeliveryRepository
	if cfg.Archive.Enabled {
		db, err := sql.Open("pgx", cfg.Archive.PostgresURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		pg := repo.NewPostgresDeliveryRepo(db)
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pg.Init(initCtx)
		cancel()
		if err != nil {
			log.Fatal(err)
		}
		deliveries = pg
	}

	var sentCache cache.SentCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		sentCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	gateway := client.NewGatewayClient(cfg.Gateway.URL, cfg.Gateway.RatePerSec)

	sessions := session.New(gateway, nil, logger)
	jobs := registry.New(nil)

	onSent, onFailed := deliveryHooks(deliveries, sentCache, logger)
	disp := dispatch.New(jobs, gateway, nil, logger).WithHooks(onSent, onFailed)

	monitor, err := session.NewMonitor(cfg.Monitor.Interval, sessions)
	if err != nil {
		log.Fatal(err)
	}
	if monitor.Start() {
		defer monitor.Stop()
	}

	handler := api.NewHandler(sessions, jobs, disp, gateway, monitor, deliveries,
		model.DelayRange{Min: cfg.Bulk.DelayMin, Max: cfg.Bulk.DelayMax})

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	log.Printf("whats-app-front starting (addr=%s, gateway=%s, monitor=%s, archive=%v, redis=%v)",
		cfg.Server.Address,
		cfg.Gateway.URL,
		cfg.Monitor.Interval,
		cfg.Archive.Enabled,
		cfg.Redis.Enabled,
	)

	if err := serve(ctx, srv); err != nil {
		log.Fatal(err)
	}
	log.Println("shutdown complete")
}

// serve blocks until the context is cancelled or the listener fails, then
// drains in-flight requests before returning.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// deliveryHooks builds the dispatch callbacks that archive outcomes and cache
// sent confirmations. Either backend may be absent; bookkeeping failures are
// logged and swallowed so they never disturb a running job.
func deliveryHooks(deliveries repo.DeliveryRepository, sentCache cache.SentCache, logger *slog.Logger) (dispatch.Hook, dispatch.Hook) {
	archive := func(ctx context.Context, jobID string, seq int, res model.Result) {
		if deliveries == nil {
			return
		}
		if err := deliveries.Append(ctx, model.NewDelivery(jobID, seq, res)); err != nil {
			logger.Warn("failed to archive delivery",
				slog.String("job", jobID),
				slog.Int("seq", seq),
				slog.String("reason", err.Error()))
		}
	}

	onSent := func(ctx context.Context, jobID string, seq int, res model.Result) error {
		archive(ctx, jobID, seq, res)
		if sentCache != nil {
			if err := sentCache.StoreSent(ctx, jobID, seq, res.MessageID, res.Timestamp); err != nil {
				logger.Warn("failed to cache sent confirmation",
					slog.String("job", jobID),
					slog.Int("seq", seq),
					slog.String("reason", err.Error()))
			}
		}
		return nil
	}

	onFailed := func(ctx context.Context, jobID string, seq int, res model.Result) error {
		archive(ctx, jobID, seq, res)
		return nil
	}

	return onSent, onFailed
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
