// Command growserve serves growth sessions over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soypat/growform/internal/config"
	"github.com/soypat/growform/internal/server"
	"github.com/soypat/growform/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	opts := session.Options{
		Seed:            cfg.Seed,
		RegionHops:      cfg.RegionHops,
		RelaxPerStep:    cfg.RelaxPerStep,
		CheckInvariants: cfg.CheckInvariants,
	}
	srv := server.New(opts, cfg.Smooth, cfg.PreviewSize, slog.Default())

	addr := fmt.Sprintf(":%d", cfg.Port)
	hs := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
