package app

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	libdb "chargehub/libs/db"

	"chargehub/internal/chargecache"
	"chargehub/internal/clients"
	"chargehub/internal/config"
	httpserver "chargehub/internal/http"
	"chargehub/internal/http/handlers"
	"chargehub/internal/http/middleware"
	"chargehub/internal/notify"
	"chargehub/internal/repository"
	"chargehub/internal/scheduler"
	"chargehub/internal/service"
)

// App wires charging-engine dependencies.
type App struct {
	server   *httpserver.Server
	db       *sql.DB
	emitter  *notify.Emitter
	autoStop *scheduler.AutoStop
	sessions *service.SessionsService
	logger   *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	reservationRepo := repository.NewReservationRepository(sqlDB)
	pointRepo := repository.NewPointRepository(sqlDB)
	slotRepo := repository.NewSlotRepository(sqlDB)
	tariffRepo := repository.NewTariffRepository(sqlDB)

	tariffService := service.NewTariffService(tariffRepo, logger)
	cache := chargecache.New(cfg.CacheTTL(), cfg.Cache.MaxEntries)

	httpClient := clients.NewDefaultHTTPClient(10 * time.Second)
	notificationClient := clients.NewNotificationClient(cfg.Notifications.BaseURL, httpClient)
	invoiceClient := clients.NewInvoiceClient(cfg.Invoicing.BaseURL, httpClient)

	emitter := notify.NewEmitter(notificationClient, cfg.Notifications.Workers, cfg.Notifications.QueueSize, logger)
	autoStop := scheduler.NewAutoStop(cache, logger)

	sessionsService := service.NewSessionsService(
		sqlDB,
		sessionRepo,
		reservationRepo,
		pointRepo,
		slotRepo,
		tariffService,
		cache,
		autoStop,
		emitter,
		invoiceClient,
		cfg.Billing.Currency,
		logger,
	)
	autoStop.Bind(sessionsService)

	sessionsHandler := handlers.NewSessionsHandler(sessionsService, logger)
	routes := httpserver.Routes{
		StartSession:         sessionsHandler.HandleStart,
		StopSession:          sessionsHandler.HandleStop,
		ChargeLevel:          handlers.NewChargeLevelHandler(sessionsService),
		SessionByReservation: sessionsHandler.HandleFindByReservation,
		Health:               handlers.NewHealthHandler(),
	}
	router := httpserver.NewRouter(routes, middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:   server,
		db:       sqlDB,
		emitter:  emitter,
		autoStop: autoStop,
		sessions: sessionsService,
		logger:   logger,
	}, nil
}

// Run starts the background workers, re-arms timers for sessions that were
// running at the last shutdown, and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.emitter.Start(ctx)

	if err := a.sessions.RearmActiveSessions(ctx); err != nil {
		a.logger.Warn("failed to re-arm active sessions", zap.Error(err))
	}

	err := a.server.Run(ctx)
	a.autoStop.Shutdown()
	a.emitter.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
