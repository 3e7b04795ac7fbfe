package main

import (
	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/pipeline"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
)

const drainTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT or SIGTERM.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := repositories.OpenBadger(config.BadgerFilepath)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db, log)
	refresh := repositories.NewRefreshRepository(db, log)
	messages, err := repositories.NewMessageRepository(db, log, config.LimitMessages)
	if err != nil {
		return err
	}
	defer func() { _ = messages.Close() }()

	// 3. Runtime: registry, dispatcher and request pipeline
	registry := runtime.NewRegistry(config.RegistryShards)
	dispatcher := runtime.NewDispatcher(log, config.EventHandlerTimeout)
	issuer := auth.NewIssuer(config.JwtSecret, config.AuthTokenDuration)

	p := pipeline.New(log, pipeline.WithBehaviors(
		pipeline.Logging(log),
		pipeline.Metrics(),
		pipeline.Timeout(config.RequestTimeout),
	))
	accounts := services.NewAccountService(log, users, refresh, issuer, config.RefreshTokenDuration, dispatcher)
	chatService := services.NewChatService(log, users, chats, messages, registry, dispatcher)
	if err := services.Register(p, pipeline.NewValidate(), accounts, chatService, config.MaxContentLength); err != nil {
		return fmt.Errorf("pipeline registration failed: %w", err)
	}
	if err := p.Seal(); err != nil {
		return err
	}

	// 4. Transport & notifications
	hub, err := websocket.NewHub(log, registry, p,
		websocket.WithSendBuffer(config.ConnectionBufferSize),
		websocket.WithCheckOrigin(websocket.AllowOrigins(config.Origins()...)),
	)
	if err != nil {
		return err
	}
	notifier := runtime.NewNotifier(log, registry, hub,
		runtime.WithDeliveryTimeout(config.DeliveryTimeout),
		runtime.WithMaxConcurrentDeliveries(config.MaxConcurrentDeliveries),
	)

	groups := event.NewGroupNotificationHandler(log, notifier)
	counter := event.NewCounterHandler(log, observability.EventsHandledTotal)
	for _, t := range event.AllTypes() {
		dispatcher.Register(t, groups)
		dispatcher.Register(t, counter)
	}
	presence := event.NewPresenceHandler(log)
	dispatcher.Register(event.UserLoggedInType, presence)
	dispatcher.Register(event.UserLoggedOutType, presence)

	router, err := httpapi.NewRouter(httpapi.Dependencies{
		Log:            log,
		Pipeline:       p,
		Issuer:         issuer,
		Registry:       registry,
		Websocket:      hub,
		LoginRateLimit: config.LoginRateLimit,
	})
	if err != nil {
		return err
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		httpapi.NewServer(log, config.Host, config.Port, router),
		hub,
		workers.NewProcessStatsWorker(log, config.MetricInterval),
		workers.NewValueLogGCWorker(log, db, config.ValueLogGCInterval),
	)
	sup.Run(ctx)

	// 7. Final Cleanup
	log.Info("Shutting down gracefully...")
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := notifier.Close(drainCtx); err != nil {
		log.Warn("Pending deliveries abandoned", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
