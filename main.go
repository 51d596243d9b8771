package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/dkwan/marketchat/internal/config"
	"github.com/dkwan/marketchat/internal/gateway"
	"github.com/dkwan/marketchat/internal/middleware"
	"github.com/dkwan/marketchat/internal/registry"
	"github.com/dkwan/marketchat/internal/relay"
	"github.com/dkwan/marketchat/internal/ws"
)

func main() {
	// .env is optional; environment always wins.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	// Room registry and gateways
	rooms := registry.New()
	store := gateway.NewPersistence(cfg.Gateway.AppURL, cfg.Gateway.PersistTimeout)
	completer := gateway.NewCompletion(cfg.Gateway.AppURL, cfg.Gateway.CompletionTimeout, logger)

	// Relay core
	svc := relay.New(rooms, store, completer, cfg.Gateway.PersistTimeout, logger)

	// WebSocket hub
	hub := ws.NewHub(rooms, svc, cfg.WebSocket, cfg.CORSOrigin, logger)
	go hub.Run()

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.HandleFunc("/ws", hub.ServeWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderWait,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("chat relay running",
			"port", cfg.Server.Port,
			"app_url", cfg.Gateway.AppURL,
			"cors_origin", cfg.CORSOrigin)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("relay stopped")
}
