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
	authmw "auction-engine/internal/api/middleware"
	"auction-engine/internal/app"
	"auction-engine/internal/config"
	"auction-engine/internal/infrastructure/leader"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
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
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize auction service", "error", err)
	}
	defer core.Close()

	leaderElection := leader.NewRedisLeaderElection(core.Redis, cfg.Leader.TTL, log)
	sweeper, err := services.NewClosingSweeper(core.Stores.Auctions, core.Closing, leaderElection, services.SweeperConfig{
		Schedule:   cfg.Closing.Schedule,
		BatchSize:  cfg.Closing.BatchSize,
		Workers:    cfg.Closing.Workers,
		InstanceID: cfg.Instance.ID,
	}, log)
	if err != nil {
		log.Fatal("Failed to create closing sweeper", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Info("Request handled",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"latency", time.Since(start).String())
			return err
		}
	})

	auth := authmw.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.CookieName)
	handlers.RegisterRoutes(e, auth,
		handlers.NewAuctionHandler(core.Auctions, core.Bids, log),
		handlers.NewNotificationHandler(core.Notifications, log))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		leaderElection.Campaign(gctx, cfg.Instance.ID, cfg.Leader.TTL/2)
		return nil
	})

	g.Go(func() error {
		return sweeper.Start(gctx)
	})

	g.Go(func() error {
		serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("Starting auction API server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down auction service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := sweeper.Stop(); err != nil {
			log.Error("Failed to stop sweeper", "error", err)
		}
		if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
			log.Error("Failed to release leadership", "error", err)
		}
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Auction service exited with error", "error", err)
	}
	log.Info("Auction service stopped")
}
