package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/config"
	"github.com/ignatzorin/tender-portal/internal/db"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/goroutine"
	"github.com/ignatzorin/tender-portal/internal/http/middleware"
	httpRouter "github.com/ignatzorin/tender-portal/internal/http/router"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/jobstore"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/mailer"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/memory"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/persistence"
	"github.com/ignatzorin/tender-portal/internal/interface/http/handler"
	"github.com/ignatzorin/tender-portal/internal/logger"
	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/service"
	notificationuc "github.com/ignatzorin/tender-portal/internal/usecase/notification"
	"github.com/ignatzorin/tender-portal/internal/usecase/submission"
	"github.com/ignatzorin/tender-portal/internal/usecase/tender"
	"github.com/ignatzorin/tender-portal/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if !cfg.IsProduction() {
		logLevel = "debug"
	}
	appLog := logger.Init(logLevel, cfg.Env == "development")

	healthChecks := make(map[string]handler.HealthCheck)

	// Хранилище тендеров и заявок.
	var (
		tenderRepo     repository.TenderRepository
		submissionRepo repository.SubmissionRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		appLog.Warn("main: тендеры и заявки хранятся в памяти процесса")
		memTenders := memory.NewTenderRepository()
		memSubmissions := memory.NewSubmissionRepository()
		memTenders.TrackSubmissions(memSubmissions)
		tenderRepo, submissionRepo = memTenders, memSubmissions
	default:
		dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolConfig)
		if err != nil {
			appLog.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				appLog.Errorf("main: ошибка закрытия базы: %v", err)
			}
		}()

		applied, err := db.RunMigrations(ctx, dbConn, os.DirFS(cfg.MigrationsPath))
		if err != nil {
			appLog.Fatalf("main: ошибка миграций: %v", err)
		}
		if len(applied) > 0 {
			appLog.WithField("migrations", applied).Info("main: применены миграции")
		}

		tenderRepo = persistence.NewTenderRepositoryAdapter(dbConn)
		submissionRepo = persistence.NewSubmissionRepositoryAdapter(dbConn)
		healthChecks["database"] = dbConn.PingContext
	}

	// Хранилище итогов рассылок.
	var (
		redisClient *redis.Client
		jobStore    notificationuc.JobStore
	)
	if cfg.RedisAddr != "" {
		redisClient, err = jobstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			appLog.Fatalf("main: ошибка подключения к redis: %v", err)
		}
		defer redisClient.Close()

		jobStore = jobstore.NewRedisStore(redisClient, cfg.JobTTL)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		appLog.Warn("main: REDIS_ADDR не задан, итоги рассылок хранятся в памяти процесса")
		jobStore = jobstore.NewMemoryStore()
	}

	sender, err := newSender(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatalf("main: ошибка инициализации отправки писем: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	adminAuth := service.NewAdminAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash, tokenManager)
	if !adminAuth.Enabled() {
		appLog.Warn("main: ADMIN_EMAIL или ADMIN_PASSWORD_HASH не заданы, вход по паролю отключён")
	}

	hub := ws.NewHub(ctx, logger.Component("ws"))
	goroutine.SafeGo(hub.Run)

	// Рассылки.
	dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{
		Concurrency: cfg.DispatchConcurrency,
		SendTimeout: cfg.SendTimeout,
	}, logger.Component("dispatcher"))
	runUC := notificationuc.NewRunUseCase(
		tenderRepo,
		submissionRepo,
		notification.NewSelector(notification.EmbeddedDocuments{}),
		notification.NewRenderer(),
		dispatcher,
		jobStore,
		hub,
		logger.Component("notification"),
	)

	// Закрытие просроченных тендеров.
	sweeper := tender.NewCloseExpiredTendersUseCase(tenderRepo, logger.Component("tender-sweeper"))
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		sweeper.Run(ctx, cfg.TenderSweepInterval)
	})

	handlers := httpRouter.Handlers{
		Auth: handler.NewAuthHandler(adminAuth),
		Tender: handler.NewTenderHandler(
			tender.NewCreateTenderUseCase(tenderRepo),
			tender.NewGetTenderUseCase(tenderRepo, submissionRepo),
			tender.NewListTendersUseCase(tenderRepo, submissionRepo),
			tender.NewTenderStatsUseCase(tenderRepo, submissionRepo),
			tender.NewPublishTenderUseCase(tenderRepo, submissionRepo),
			tender.NewStartEvaluationUseCase(tenderRepo, submissionRepo),
			tender.NewAwardTenderUseCase(tenderRepo, submissionRepo),
			tender.NewRejectTenderUseCase(tenderRepo, submissionRepo),
			tender.NewCloseTenderUseCase(tenderRepo, submissionRepo),
			tender.NewDeleteTenderUseCase(tenderRepo),
		),
		Submission: handler.NewSubmissionHandler(
			submission.NewCreateSubmissionUseCase(tenderRepo, submissionRepo),
			submission.NewGetSubmissionUseCase(submissionRepo),
			submission.NewListSubmissionsUseCase(tenderRepo, submissionRepo),
			submission.NewStartReviewUseCase(submissionRepo),
			submission.NewEvaluateSubmissionUseCase(submissionRepo),
			submission.NewAwardSubmissionUseCase(submissionRepo),
			submission.NewRejectSubmissionUseCase(submissionRepo),
		),
		Notification: handler.NewNotificationHandler(runUC),
		WS:           handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:       handler.NewHealthHandler(healthChecks),
	}

	rateLimitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		appLog.Fatalf("main: %v", err)
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, rateLimitStore, logger.Component("http"))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	appLog.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Фоновые рассылки доводим до конца, чтобы итог попал в хранилище.
	appLog.Info("main: ожидание завершения фоновых рассылок")
	runUC.Wait()
}

func newSender(ctx context.Context, cfg *config.Config, appLog *logrus.Logger) (notification.Sender, error) {
	if cfg.MailDriver == config.MailDriverSES {
		sender, err := mailer.NewSESSenderFromEnv(ctx, cfg.AWSRegion, cfg.MailFrom)
		if err != nil {
			return nil, err
		}
		return sender, nil
	}
	appLog.Warn("main: письма не отправляются, только пишутся в лог")
	return mailer.NewLogSender(logger.Component("mailer")), nil
}
