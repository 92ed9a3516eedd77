package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-engine/internal/api/handlers"
	"auction-engine/internal/api/middleware"
	"auction-engine/internal/app"
	"auction-engine/internal/config"
	natsinfra "auction-engine/internal/infrastructure/nats"
	"auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		Mode:       cfg.Logger.Mode,
		FileEnable: cfg.Logger.FileEnable,
		Filename:   cfg.Logger.Filename,
	})
	log.Info("Starting bidding service", "config", cfg.GetConfigString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize bidding service", "error", err)
	}
	defer core.Close()

	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewWebSocketNotifier(connManager)
	eventListener := services.NewEventListener(connManager, broadcaster, core.Rules, log)
	eventSubscriber := redis.NewRedisEventSubscriber(core.Redis, log)
	pusher := services.NewNotificationPusher(broadcaster, log)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.CookieName)
	wsHandler := websocket.NewWebSocketHandler(core.Bids, core.Auctions, auth, core.PriceCache,
		core.Rules, connManager, log)
	router := handlers.NewBiddingRouter(handlers.NewWebSocketHandlers(wsHandler), log)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BiddingServer.Host, cfg.BiddingServer.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := eventListener.Start(gctx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if core.NATS != nil {
		durable := natsinfra.InstanceDurable(cfg.NATS.Durable, cfg.Instance.ID)
		consumer, err := natsinfra.NewNotificationConsumer(core.NATS, cfg.NATS.Stream, cfg.NATS.SubjectPrefix, durable, log)
		if err != nil {
			log.Fatal("Failed to create notification consumer", "error", err)
		}
		g.Go(func() error {
			return pusher.Start(gctx, consumer)
		})
	}

	g.Go(func() error {
		log.Info("Starting bidding server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down bidding service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Bidding service exited with error", "error", err)
	}
	log.Info("Bidding service stopped")
}
