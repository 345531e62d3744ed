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

	"github.com/salon-booking/cli/internal/config"
	"github.com/salon-booking/cli/internal/devserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := devserver.NewLogger(os.Stderr)
	srv := devserver.New(devserver.Options{
		CodeLength:  cfg.Code.Length,
		CodeTTL:     cfg.Server.CodeTTL,
		MaxAttempts: cfg.Server.MaxAttempts,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown: %v", err)
		}
	}()

	logger.Info("salon dev server listening on http://%s", cfg.Server.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve: %v", err)
		os.Exit(1)
	}
}
