package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/centerionware/smartbillsplitter-sub003/internal/relay"
	"github.com/centerionware/smartbillsplitter-sub003/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := relay.LoadConfig()

	store, err := relay.NewShareStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize share storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Share storage initialized", "database", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go store.RunSweeper(ctx, cfg.SweepInterval)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	relay.NewHandler(store, relay.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL), cfg).SetupRoutes(router)

	// h2c serves HTTP/2 without TLS so clients behind a terminating
	// proxy can multiplex probes and updates on one connection.
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Shutdown did not finish cleanly", "error", err)
		}
	}()

	slog.Info("Relay server starting", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Relay server stopped")
}
