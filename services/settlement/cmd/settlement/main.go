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

	"elearnhub/internal/servicetoken"
	"elearnhub/internal/util"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
	"elearnhub/services/settlement/internal/app"
	"elearnhub/services/settlement/internal/config"
	"elearnhub/services/settlement/internal/server"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel, "settlement")

	retryDelay, _ := config.ParseDuration(cfg.QueueRetryDelay)
	confirmDelay, _ := config.ParseDuration(cfg.ConfirmDelay)

	q, err := queue.NewRedisSettlementQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.SettlementStream,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: retryDelay,
	})
	if err != nil {
		util.Fatal("failed to init settlement queue", "err", err)
	}
	defer q.Close()

	signer, err := servicetoken.NewSigner(servicetoken.SignerOptions{
		PrivateKeyPath: cfg.InternalJWTPrivateKeyPath,
		KeyID:          cfg.InternalJWTKeyID,
		Issuer:         servicetoken.IssuerSettlement,
	})
	if err != nil {
		util.Fatal("failed to init service token signer", "err", err)
	}

	// Verification does not depend on shortcode or client id.
	processor := payment.NewSimulatedProcessor(payment.DefaultDelays(), domain.PaymentSettings{})
	appCore, err := app.New(app.Config{
		Queue:        q,
		Processor:    processor,
		Marketplace:  app.NewMarketplaceClient(cfg.MarketplaceURL, signer),
		Concurrency:  cfg.QueueConcurrency,
		ConfirmDelay: confirmDelay,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{App: appCore})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCore.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("settlement worker listening", "addr", addr, "concurrency", cfg.QueueConcurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	stop()
	appCore.Wait()
}
