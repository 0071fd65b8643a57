package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/snapscape/internal/config"
	"github.com/iliyamo/snapscape/internal/database"
	"github.com/iliyamo/snapscape/internal/handler"
	"github.com/iliyamo/snapscape/internal/mail"
	"github.com/iliyamo/snapscape/internal/middleware"
	"github.com/iliyamo/snapscape/internal/notify"
	"github.com/iliyamo/snapscape/internal/queue"
	"github.com/iliyamo/snapscape/internal/repository"
	"github.com/iliyamo/snapscape/internal/router"
	"github.com/iliyamo/snapscape/internal/service"
	"github.com/iliyamo/snapscape/internal/storage"
	"github.com/iliyamo/snapscape/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := database.Open(ctx, cfg.DSN(), database.Pool{MaxOpen: cfg.DBMaxOpenConns})
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("database ready", "migrations_applied", applied)

	objects, err := storage.NewMinioStore(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey,
		cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		return err
	}
	images := storage.NewImageStore(objects, cfg.Storage.PublicBaseURL)
	images.MaxPixels = cfg.Storage.MaxImagePixels

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	e := newServer(cfg, db, images, rdb)

	var mailer mail.Sender = mail.LogSender{}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}
	consumer := queue.NewConsumer(cfg.RabbitURL, notify.NewDispatcher(users, mailer))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// newServer wires repositories, services and handlers into the router.
// rdb may be nil, in which case rate limiting and caching are off.
func newServer(cfg config.Config, db *sql.DB, images service.ImageStore, rdb *redis.Client) *echo.Echo {
	users := repository.NewUserRepo(db)
	competitions := repository.NewCompetitionRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	ratings := repository.NewRatingRepo(db)
	results := repository.NewResultRepo(db)

	events := queue.NewPublisher(cfg.RabbitURL)
	resultSvc := service.NewResultService(competitions, submissions, results)
	competitionSvc := service.NewCompetitionService(competitions, resultSvc, events)
	submissionSvc := service.NewSubmissionService(submissions, competitions, images, events, int(cfg.Storage.MaxUploadBytes))

	opt := router.Options{
		JWTSecret:  cfg.JWTSecret,
		CronSecret: cfg.CronSecret,
		DB:         db,
	}
	if rdb != nil {
		opt.RateLimiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		opt.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	return router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)),
		Competitions: handler.NewCompetitionHandler(competitionSvc, service.NewLeaderboardService(competitions, submissions), resultSvc),
		Submissions:  handler.NewSubmissionHandler(submissionSvc, cfg.Storage.MaxUploadBytes),
		Ratings:      handler.NewRatingHandler(service.NewRatingService(ratings)),
		AdminUsers:   handler.NewAdminUserHandler(users),
		Maintenance:  handler.NewMaintenanceHandler(service.NewMaintenanceService(ratings)),
	}, opt)
}
