package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/956zs/pinit/internal/adapter/chatapi"
	"github.com/956zs/pinit/internal/adapter/gateway"
	"github.com/956zs/pinit/internal/adapter/httpserver"
	"github.com/956zs/pinit/internal/adapter/metrics"
	"github.com/956zs/pinit/internal/app"
	"github.com/956zs/pinit/internal/cooldown"
	"github.com/956zs/pinit/internal/platform/config"
	"github.com/956zs/pinit/internal/platform/logging"
	"github.com/956zs/pinit/internal/voting"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *httpserver.Server, svc *app.Service, stopGateway context.CancelFunc, gatewayDone <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Stop event intake first so in-flight votes drain before the
		// coordinator goes away.
		stopGateway()
		select {
		case <-gatewayDone:
		case <-time.After(shutdownTimeout):
			slog.Warn("Gateway did not drain in time")
		}

		svc.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	instanceID := uuid.NewString()
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"instance_id", instanceID,
		"confirm_cap", cfg.ConfirmCap,
	)

	reg := metrics.NewRegistry()
	voteMetrics := metrics.NewVoteMetrics(reg)
	pinMetrics := metrics.NewPinMetrics(reg)
	gatewayMetrics := metrics.NewGatewayMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	registry := voting.NewRegistry(clock)
	gate := cooldown.NewGate(cfg.PinCooldown, clock)
	chatClient := chatapi.NewClient(cfg.APIBaseURL, cfg.BotToken, pinMetrics)

	svc := app.NewService(registry, gate, chatClient, app.Settings{
		ConfirmCap:    cfg.ConfirmCap,
		PinTimeout:    cfg.PinTimeout,
		SessionMaxAge: cfg.SessionMaxAge,
		SweepInterval: cfg.SweepInterval,
	}, voteMetrics, pinMetrics, clock)

	gw := gateway.NewClient(cfg.GatewayURL, cfg.BotToken, instanceID, cfg.GatewayWorkers, svc, gatewayMetrics, clock)

	healthChecks := []httpserver.HealthCheck{
		{
			Name: "gateway",
			Check: func(_ context.Context) error {
				if !gw.Connected() {
					return errors.New("gateway disconnected")
				}
				return nil
			},
		},
	}

	srv := httpserver.NewServer(cfg.Port, reg, httpMetrics, healthChecks)

	gatewayCtx, stopGateway := context.WithCancel(context.Background())
	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		if err := gw.Run(gatewayCtx); err != nil {
			// Run only fails on permanent errors like a rejected token.
			slog.Error("Gateway failed", "error", err)
			os.Exit(1)
		}
	}()

	done := runGracefulShutdown(srv, svc, stopGateway, gatewayDone)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
