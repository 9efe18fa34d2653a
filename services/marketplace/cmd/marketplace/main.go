package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elearnhub/internal/ratelimit"
	"elearnhub/internal/servicetoken"
	"elearnhub/internal/util"
	"elearnhub/pkg/auth"
	"elearnhub/pkg/payment"
	"elearnhub/pkg/queue"
	"elearnhub/pkg/storage"
	"elearnhub/pkg/store"
	"elearnhub/services/marketplace/internal/app"
	"elearnhub/services/marketplace/internal/config"
	"elearnhub/services/marketplace/internal/security"
	"elearnhub/services/marketplace/internal/server"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel, "marketplace")

	st, closeStore, err := openStore(cfg)
	if err != nil {
		util.Fatal("failed to open store", "backend", cfg.StoreBackend, "err", err)
	}
	defer closeStore()

	settings, err := st.GetSettings()
	if err != nil {
		util.Fatal("failed to load settings", "err", err)
	}
	defaults := payment.DefaultDelays()
	processor := payment.NewSimulatedProcessor(payment.Delays{
		Mpesa:  config.DelayOr(cfg.MpesaDelayMs, defaults.Mpesa),
		Card:   config.DelayOr(cfg.CardDelayMs, defaults.Card),
		PayPal: config.DelayOr(cfg.PayPalDelayMs, defaults.PayPal),
	}, settings.Payment)

	var revoker auth.TokenRevoker = auth.NewMemoryTokenRevoker()
	if cfg.RedisAddr != "" {
		revoker = auth.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
	}
	sessionTTL, _ := config.ParseDuration(cfg.SessionTTL)
	sessions, err := auth.NewSessionManager(cfg.JWTSecret, revoker, auth.SessionOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      sessionTTL,
	})
	if err != nil {
		util.Fatal("failed to init sessions", "err", err)
	}

	appCfg := app.Config{
		Store:             st,
		Processor:         processor,
		Sessions:          sessions,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
		ThumbnailMaxBytes: cfg.ThumbnailMaxBytes,
	}
	appCfg.ThumbnailURLTTL, _ = config.ParseDuration(cfg.ThumbnailURLTTL)

	if cfg.RedisAddr != "" {
		settlements, err := queue.NewRedisSettlementQueue(queue.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.SettlementStream,
		})
		if err != nil {
			util.Fatal("failed to init settlement queue", "err", err)
		}
		defer settlements.Close()
		appCfg.Settlements = settlements
	} else {
		logger.Warn("redisAddr not set; pending payments are settled manually from the back office")
	}

	if cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			util.Fatal("failed to init object storage", "err", err)
		}
		appCfg.Objects = objects
	} else if cfg.MediaBaseURL != "" {
		appCfg.Objects = storage.NewMemoryStore(cfg.MediaBaseURL)
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	var limiter ratelimit.Limiter
	if cfg.CheckoutRateLimit > 0 {
		window, _ := config.ParseDuration(cfg.CheckoutRateWindow)
		if cfg.RedisAddr != "" {
			redisLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix+":ratelimit", cfg.CheckoutRateLimit, window)
			if err != nil {
				util.Fatal("failed to init rate limiter", "err", err)
			}
			defer redisLimiter.Close()
			limiter = redisLimiter
		} else {
			memLimiter, err := ratelimit.NewMemoryLimiter(cfg.CheckoutRateLimit, window)
			if err != nil {
				util.Fatal("failed to init rate limiter", "err", err)
			}
			limiter = memLimiter
		}
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		util.Fatal("invalid trustedProxies", "err", err)
	}

	var verifier *servicetoken.Verifier
	if cfg.InternalJWTPublicKeyPath != "" {
		verifier, err = servicetoken.NewVerifier(servicetoken.VerifierOptions{
			PublicKeyPath:  cfg.InternalJWTPublicKeyPath,
			KeyID:          cfg.InternalJWTKeyID,
			Audience:       servicetoken.AudienceMarketplace,
			AllowedIssuers: []string{servicetoken.IssuerSettlement},
		})
		if err != nil {
			util.Fatal("failed to init internal token verifier", "err", err)
		}
	}

	alerter := security.NewAuditAlerter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix+":alerts")
	defer alerter.Close()

	httpServer, err := server.New(server.Config{
		App:                appCore,
		InternalVerifier:   verifier,
		CheckoutLimiter:    limiter,
		TrustedProxies:     trusted,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Alerter:            alerter,
	})
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
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("marketplace listening", "addr", addr, "store", cfg.StoreBackend)
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
}

func openStore(cfg config.FileConfig) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		backend := store.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix)
		return store.NewBlobStore(backend), closeQuietly(backend), nil
	case config.StoreGorm:
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return gs, closeQuietly(gs), nil
	default:
		return store.NewBlobStore(store.NewMemoryBackend()), func() {}, nil
	}
}

func closeQuietly(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("close store", "err", err)
		}
	}
}
