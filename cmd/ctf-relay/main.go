package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mukhtarkv/CTF/internal/config"
	"github.com/mukhtarkv/CTF/internal/relay"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := relay.NewRegistry(ctx, log)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: relay.SetupRoutes(reg, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("relay listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("relay stopped", zap.Error(err))
	}
}
