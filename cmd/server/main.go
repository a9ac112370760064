package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Phuc-215/WEBRTC/internal/config"
	"github.com/Phuc-215/WEBRTC/internal/logging"
	"github.com/Phuc-215/WEBRTC/internal/server"
	"github.com/Phuc-215/WEBRTC/internal/signaling"
	"github.com/Phuc-215/WEBRTC/internal/turncred"
)

func main() {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var turn *turncred.Generator
	if cfg.TurnRESTSecret != "" {
		turn, err = turncred.New(cfg.TurnRESTSecret, cfg.TurnRESTTTL, cfg.TurnRESTPrefix, nil)
		if err != nil {
			slog.Error("invalid TURN REST configuration", "err", err)
			os.Exit(1)
		}
		slog.Info("TURN REST credentials enabled", "ttl_seconds", cfg.TurnRESTTTL)
	}

	hub := signaling.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Routes(hub, cfg, turn, time.Now()),
	}

	errCh := make(chan error, 1)
	go func() {
		// Production runs behind a TLS-terminating proxy; development
		// terminates TLS itself when certificates are present.
		if cfg.Mode == config.ModeDev && fileExists(cfg.CertFile) && fileExists(cfg.KeyFile) {
			slog.Info("listening with TLS", "addr", cfg.Addr())
			errCh <- srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		slog.Info("listening", "addr", cfg.Addr(), "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	case s := <-sig:
		slog.Info("shutting down", "signal", s.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
