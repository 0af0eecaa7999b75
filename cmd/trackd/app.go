package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"peertrack/internal/general/config"
	"peertrack/internal/general/jwt"
	"peertrack/internal/general/logger"
	"peertrack/internal/general/postgres"
	"peertrack/internal/general/rabbitmq"
	"peertrack/internal/general/rediscache"
	"peertrack/internal/general/routing"
	"peertrack/internal/general/websocket"
	"peertrack/internal/software/tracking/handler"
	"peertrack/internal/software/tracking/service"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, configPath string, maxConcurrent int) error {
	// set up the logger with a static request ID for startup logs
	logger := logger.New("tracking-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	pub := rabbitmq.NewMQPublisher(rmq)

	// the shared live-position store: Postgres rows plus change events
	repo := postgres.NewLiveLocationRepo(pool)
	store := service.NewPublishingStore(repo, pub, logger)
	feed := rabbitmq.NewLocationFeed(rmq, logger)
	notifier := rabbitmq.NewNearNotifier(pub, logger)

	// routed estimates, with an optional Redis read-through cache in front
	router := routing.NewClient(cfg.Routing.BaseURL, cfg.RoutingRequestTimeout(), logger)
	var fetcher service.RouteFetcher = router
	if rdb := rediscache.Connect(cfg); rdb != nil {
		defer rdb.Close()
		fetcher = rediscache.NewRouteCache(rdb, router, cfg.RoutingCacheTTL(), logger)
		logger.Info(ctx, "route_cache_enabled", "Redis route cache enabled", map[string]any{"addr": cfg.Redis.Addr})
	}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	coalescerCfg := service.CoalescerConfig{
		MinDisplacementMeters: cfg.Tracking.MinDisplacementMeters,
		SlowSpeedMPS:          cfg.Tracking.SlowSpeedMPS,
		SlowCooldown:          cfg.TrackingSlowCooldown(),
		Debounce:              cfg.TrackingDebounce(),
		FlushTimeout:          5 * time.Second,
	}
	trackingCfg := service.TrackingConfig{
		RefreshInterval:  cfg.TrackingRefreshInterval(),
		StaleWindow:      cfg.TrackingStaleWindow(),
		NearThreshold:    cfg.Tracking.NearThresholdMeters,
		FallbackSpeedKMH: cfg.Tracking.FallbackSpeedKMH,
		DeviceStatusPoll: cfg.TrackingDeviceStatusPoll(),
	}

	svc := service.NewTrackingService(logger, store, feed, fetcher, notifier, coalescerCfg, trackingCfg)
	gateway := websocket.NewGateway(logger, jwtManager, svc)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewTrackingHTTPHandler(gateway, logger)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Tracking Service started on port %d", cfg.Service.Port),
		map[string]any{"port": cfg.Service.Port, "max_concurrent": maxConcurrent},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// background consumer delivering near notifications to devices
		rabbitmq.RunNearConsumer(gctx, rmq, gateway, logger)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err,
			map[string]any{"port": cfg.Service.Port})
		return err
	}
	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
