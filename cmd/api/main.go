package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanosuguru/go-hotel-reservation/internal/api"
	"github.com/sanosuguru/go-hotel-reservation/internal/api/handler"
	"github.com/sanosuguru/go-hotel-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-hotel-reservation/internal/application"
	"github.com/sanosuguru/go-hotel-reservation/internal/config"
	kafkainfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-hotel-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-hotel-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-hotel-reservation/internal/worker"
)

func main() {
	// .env はローカル開発用（存在しなくてもよい）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Env:        cfg.App.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		os.Exit(1)
	}
	logger.Set(log)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバーが異常終了しました", zap.Error(err))
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Redis は任意。接続できなければ行ロックのみで動作する
	var (
		redisClient *redis.Client
		lockManager redisinfra.LockManagerInterface
		cache       redisinfra.AvailabilityCacheInterface
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis に接続できないため分散ロックとキャッシュを無効化します", zap.Error(err))
		} else {
			defer redisClient.Close()
			lockManager = redisinfra.NewLockManager(redisClient, m)
			cache = redisinfra.NewAvailabilityCache(redisClient)
		}
	}

	var publisher kafkainfra.PublisherInterface = kafkainfra.NopPublisher{}
	var kafkaPublisher *kafkainfra.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = kafkainfra.NewPublisher(&cfg.Kafka, logger.Get())
		publisher = kafkaPublisher
	}

	opts := []application.Option{
		application.WithMetrics(m),
		application.WithPublisher(publisher),
		application.WithLockTTL(cfg.Redis.LockTTL),
		application.WithCacheTTL(cfg.Redis.CacheTTL),
	}

	txManager := postgres.NewTxManager(db, cfg.Database.LockTimeout)
	roomRepo := postgres.NewRoomRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	roomService := application.NewRoomService(roomRepo, cache)
	reservationService := application.NewReservationService(txManager, reservationRepo, roomRepo, paymentRepo, lockManager, cache, opts...)
	paymentService := application.NewPaymentService(txManager, paymentRepo, reservationRepo, opts...)

	e := newServer(cfg, m, handler.Handlers{
		Health:      handler.NewHealthHandler(healthCheckers(db, redisClient)),
		Room:        handler.NewRoomHandler(roomService, reservationService),
		Reservation: handler.NewReservationHandler(reservationService),
		Payment:     handler.NewPaymentHandler(paymentService),
	})

	g, gctx := errgroup.WithContext(ctx)

	// 送信ループはシャットダウン時に Close で止める
	if kafkaPublisher != nil {
		kafkaPublisher.Start(context.WithoutCancel(gctx))
	}

	var sweeper *worker.StayCompletionSweeper
	if cfg.Worker.CompletionEnabled {
		sweeper = worker.NewStayCompletionSweeper(reservationService, cfg.Worker.CompletionInterval, cfg.Worker.CompletionBatch)
		g.Go(func() error {
			sweeper.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバー起動エラー: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if sweeper != nil {
			sweeper.Stop()
		}
		err := e.Shutdown(shutdownCtx)
		// 処理中のリクエストが送ったイベントを書き切ってから閉じる
		if kafkaPublisher != nil {
			kafkaPublisher.Close()
			kafkaPublisher.WaitClosed()
		}
		return err
	})

	return g.Wait()
}

func newServer(cfg *config.Config, m *metrics.Metrics, h handler.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	handler.RegisterRoutes(e, h, cfg.Metrics)
	return e
}

func healthCheckers(db *sqlx.DB, rc *redis.Client) map[string]handler.Checker {
	checkers := map[string]handler.Checker{
		"database": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
	}
	if rc != nil {
		checkers["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) }
	}
	return checkers
}
