package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/chat-reminders/internal/api"
	"github.com/LeventeLantos/chat-reminders/internal/cache"
	"github.com/LeventeLantos/chat-reminders/internal/client"
	"github.com/LeventeLantos/chat-reminders/internal/config"
	"github.com/LeventeLantos/chat-reminders/internal/repo"
	"github.com/LeventeLantos/chat-reminders/internal/scheduler"
	"github.com/LeventeLantos/chat-reminders/internal/service"
	"github.com/LeventeLantos/chat-reminders/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	loc, err := time.LoadLocation(cfg.Intent.Timezone)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := repo.EnsureSchema(ctx, db); err != nil {
		log.Fatal(err)
	}

	var dedup cache.MessageCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		dedup = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	users := repo.NewPostgresUserRepo(db)
	reminders := repo.NewPostgresReminderRepo(db)
	weather := repo.NewPostgresWeatherRepo(db)

	send := client.NewSendClient(cfg.Send.URL)
	intent := client.NewIntentClient(cfg.Intent.URL)
	lookup := client.NewWeatherClient(cfg.Weather.URL, cfg.Weather.APIKey)

	sessions := session.NewStore(time.Now, cfg.Session.TTL)
	engine := service.NewReminders(reminders, intent, loc, cfg.Intent.ConfidenceMin)
	chat := service.NewChat(users, reminders, weather, engine, lookup, sessions, loc, cfg.Weather.SendTime)
	dispatcher := service.NewDispatcher(reminders, weather, send, lookup, loc, cfg.Weather.SendTime)

	sched, err := scheduler.New(cfg.Scheduler.Interval, dispatcher.Tick)
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(chat, send, dedup, sched)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(handler)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("listening",
			"addr", cfg.Server.Address,
			"interval", cfg.Scheduler.Interval,
			"timezone", cfg.Intent.Timezone,
			"redis", cfg.Redis.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
