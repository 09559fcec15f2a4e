package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/vetclinic/libs/auth"
	"github.com/md-rashed-zaman/vetclinic/libs/config"
	"github.com/md-rashed-zaman/vetclinic/libs/grpcx"
	"github.com/md-rashed-zaman/vetclinic/libs/httpx"
	otelx "github.com/md-rashed-zaman/vetclinic/libs/otel"
	"github.com/md-rashed-zaman/vetclinic/libs/runtime"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/consumer"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/grpcserver"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/inbox"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/lifecycle"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Error("load .env failed", "err", err)
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		bootLogger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer b.close()
	startOutbox(ctx, b, cfg, logger)

	var (
		cache       availability.Cache
		invalidator lifecycle.Invalidator
		rateLimit   httpx.Middleware
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		redisCache := availability.NewRedisCache(rdb, cfg.CacheTTL, "vetclinic:avail")
		cache, invalidator = redisCache, redisCache
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, "vetclinic:rl").Middleware(logger, true)
		b.checks = append(b.checks, runtime.ReadyCheck{Name: "redis", Check: availability.ReadyCheck(rdb)})

		if len(cfg.KafkaBrokers) > 0 {
			var dedup consumer.Inbox
			if b.pool != nil {
				dedup = inbox.NewRepository(b.pool)
			}
			reader := consumer.NewReader(consumer.Config{
				Brokers: cfg.KafkaBrokers,
				GroupID: cfg.KafkaGroupID,
				Topic:   consumer.ScheduleChangedTopic,
			})
			go consumer.New(reader, logger, dedup, consumer.ScheduleChanged(redisCache, logger)).Run(ctx)
		}
	} else {
		rateLimit = httpx.NewRateLimiter(cfg.RateLimit, cfg.RateWindow).Middleware()
	}

	notifier, closeNotifier, err := openNotifier(cfg, logger)
	if err != nil {
		logger.Error("notifier init failed", "err", err)
		os.Exit(1)
	}
	defer closeNotifier()

	resolver := availability.NewResolver(b.schedules, b.ledger, b.directory, availability.Options{
		Location: cfg.Location,
		Cache:    cache,
		Logger:   logger,
	})
	svc := lifecycle.NewService(b.ledger, b.schedules, b.directory, notifier, lifecycle.Config{
		Location:      cfg.Location,
		Channels:      cfg.NotifyChannels,
		NotifyTimeout: cfg.NotifyTimeout,
		Invalidator:   invalidator,
		Logger:        logger,
	})

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" || cfg.JWKSURL != "" {
		verifier = &auth.Verifier{Secret: cfg.JWTSecret, Leeway: 30 * time.Second}
		if cfg.JWKSURL != "" {
			verifier.Keys = auth.NewJWKSClient(cfg.JWKSURL, 5*time.Minute, nil)
		}
	} else {
		logger.Warn("no JWT_SECRET or JWKS_URL; trusting gateway identity headers")
	}

	if cfg.GRPCPort != "" {
		if err := startGRPCServer(ctx, logger, cfg.GRPCPort, resolver, svc, verifier); err != nil {
			logger.Error("grpc server init failed", "err", err)
			os.Exit(1)
		}
	}

	mux := runtime.NewBaseMuxWithReady(b.checks...)
	handlers.NewSchedulingHandler(resolver, svc, handlers.Authenticator{Verifier: verifier}, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins, MaxAge: 10 * time.Minute}),
		rateLimit,
		httpx.WithBodyLimit(cfg.BodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")

	logger.Info("scheduling service configured",
		"storage", cfg.StorageDriver,
		"notify", cfg.NotifyDriver,
		"timezone", cfg.Location.String(),
		"cache", cache != nil,
	)
	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}, 10*time.Second)
}

func startGRPCServer(ctx context.Context, logger *slog.Logger, port string, resolver grpcserver.Resolver, lc grpcserver.Lifecycle, verifier *auth.Verifier) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpcx.NewServer(logger)
	grpcserver.Register(srv, resolver, lc, verifier)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return nil
}
