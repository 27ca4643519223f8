package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/config"
	"github.com/ignatzorin/tutoring-backend/internal/db"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	httpHandlers "github.com/ignatzorin/tutoring-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/tutoring-backend/internal/http/router"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/meeting"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/mq"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
	"github.com/ignatzorin/tutoring-backend/internal/service"
	"github.com/ignatzorin/tutoring-backend/internal/worker"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	mainLog := logger.Component("main")

	clk := clock.Real{}

	// Хранилище.
	var store repository.TxManager
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.NewStore()
		mem.SeedDefaults(clk.Now())
		store = mem
		mainLog.Warn("используется хранилище в памяти, данные не сохраняются между перезапусками")
	default:
		dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool())
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if _, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}
		store = persistence.NewTxManager(dbConn)
	}

	// Внешние интеграции.
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("main: ошибка подключения к rabbitmq: %v", err)
		}
		defer func() {
			if err := p.Close(); err != nil {
				mainLog.WithError(err).Warn("ошибка закрытия rabbitmq")
			}
		}()
		publisher = p
	}

	var meetings service.MeetingProvisioner = meeting.Noop{}
	if cfg.MeetingBaseURL != "" {
		meetings = meeting.NewClient(cfg.MeetingBaseURL, cfg.MeetingTimeout)
	}

	// Сервисы.
	policy := service.PolicyFromConfig(cfg.Engine)
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	notificationService := service.NewNotificationService(store.Notifications(), publisher, clk)
	ledgerService := service.NewLedgerService(store, clk)
	availabilityService := service.NewAvailabilityService(store, clk)
	scheduleService := service.NewScheduleService(store, clk, policy, ledgerService, meetings, notificationService)
	bookingService := service.NewBookingService(store, clk, policy, ledgerService, scheduleService, notificationService)
	payoutService := service.NewPayoutService(store, clk, policy, ledgerService, notificationService)
	completionService := service.NewCompletionService(store, clk, policy, payoutService, scheduleService, notificationService)
	reportService := service.NewReportService(store, clk, completionService, scheduleService, notificationService)
	refundService := service.NewRefundService(store, clk, ledgerService, notificationService)
	withdrawalService := service.NewWithdrawalService(store, clk, policy, ledgerService, notificationService)
	changeRequestService := service.NewChangeRequestService(store, clk, policy, scheduleService, notificationService)
	classRequestService := service.NewClassRequestService(store, clk, notificationService)

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Health:         httpHandlers.NewHealthHandler(store),
		Availability:   httpHandlers.NewAvailabilityHandler(availabilityService),
		Bookings:       httpHandlers.NewBookingHandler(bookingService, scheduleService, refundService),
		Schedules:      httpHandlers.NewScheduleHandler(scheduleService, completionService, reportService),
		ChangeRequests: httpHandlers.NewChangeRequestHandler(changeRequestService),
		ClassRequests:  httpHandlers.NewClassRequestHandler(classRequestService),
		Payments:       httpHandlers.NewPaymentHandler(ledgerService),
		Withdrawals:    httpHandlers.NewWithdrawalHandler(withdrawalService),
		Notifications:  httpHandlers.NewNotificationHandler(notificationService),
		Reports:        httpHandlers.NewReportHandler(reportService),
		Admin: httpHandlers.NewAdminHandler(availabilityService, payoutService, refundService,
			withdrawalService, ledgerService),
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager)

	// Воркеры сверки.
	waitWorkers := worker.Start(ctx, worker.Tasks(cfg.Engine, worker.Services{
		Bookings:       bookingService,
		Schedules:      scheduleService,
		Completion:     completionService,
		Payouts:        payoutService,
		ChangeRequests: changeRequestService,
		ClassRequests:  classRequestService,
	}))

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
			mainLog.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	mainLog.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	waitWorkers()
	mainLog.Info("воркеры остановлены")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
