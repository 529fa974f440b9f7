// The wsearchd command implements the Wrale Search server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-search/internal/wsearchd/benchmark"
	"github.com/wrale/wrale-search/internal/wsearchd/config"
	"github.com/wrale/wrale-search/internal/wsearchd/content"
	contenthttp "github.com/wrale/wrale-search/internal/wsearchd/content/http"
	"github.com/wrale/wrale-search/internal/wsearchd/database"
	"github.com/wrale/wrale-search/internal/wsearchd/insights"
	insightshttp "github.com/wrale/wrale-search/internal/wsearchd/insights/http"
	insightsredis "github.com/wrale/wrale-search/internal/wsearchd/insights/redis"
	metricspg "github.com/wrale/wrale-search/internal/wsearchd/metrics/postgres"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	opportunitypg "github.com/wrale/wrale-search/internal/wsearchd/opportunity/postgres"
	"github.com/wrale/wrale-search/internal/wsearchd/ratelimit"
	ratelimitredis "github.com/wrale/wrale-search/internal/wsearchd/ratelimit/redis"
	"github.com/wrale/wrale-search/internal/wsearchd/retention"
	"github.com/wrale/wrale-search/internal/wsearchd/server"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
	syncpg "github.com/wrale/wrale-search/internal/wsearchd/sync/postgres"
	"github.com/wrale/wrale-search/internal/wsearchd/sync/runlock"
	"github.com/wrale/wrale-search/internal/wsearchd/telemetry"
	"github.com/wrale/wrale-search/internal/wsearchd/upstream/searchconsole"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			logger.Error("failed to load config file", "error", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	level, _ := cfg.Log.SlogLevel()
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connection pool with startup retries; migrations run before serving
	db, err := database.SetupDatabase(ctx, cfg.Database.ConnString(), database.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectRetries:  cfg.Database.ConnectRetries,
		RetryDelay:      cfg.Database.RetryDelay,
	}, logger)
	if err != nil {
		return fmt.Errorf("setup database: %w", err)
	}
	defer db.Close()

	// Redis is optional; without it locks, cache and rate limits stay in process
	var (
		locker    runlock.Locker = runlock.NewLocal()
		cache     insights.Cache
		rateStore ratelimit.Store = ratelimit.NewMemory()
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr, err)
		}

		locker = runlock.NewRedis(rdb)
		cache = insightsredis.NewCache(rdb, "")
		rateStore = ratelimitredis.NewStore(rdb)
		logger.Info("using redis for locks, cache and rate limits", "addr", cfg.Redis.Addr)
	}

	metricsRepo := metricspg.NewRepository(db, logger)
	oppRepo := opportunitypg.NewRepository(db, logger)
	stateRepo := syncpg.NewStateRepository(db, logger)

	detectCfg := opportunity.Config{
		WindowDays:  cfg.Detection.WindowDays,
		RecentDays:  cfg.Detection.RecentDays,
		MaxPerType:  cfg.Detection.MaxPerType,
		RetireStale: cfg.Detection.RetireStale,
	}
	if len(cfg.Detection.CTRCurve) > 0 {
		detectCfg.Curve = benchmark.Curve(cfg.Detection.CTRCurve)
	}
	detector := opportunity.NewDetector(metricsRepo, oppRepo, detectCfg, logger)
	sweeper := retention.NewSweeper(metricsRepo, logger)

	source := searchconsole.NewStaticClient(cfg.Upstream.Token,
		searchconsole.WithBaseURL(cfg.Upstream.BaseURL),
		searchconsole.WithPageSize(cfg.Upstream.PageSize),
		searchconsole.WithMaxRows(cfg.Upstream.MaxRows),
		searchconsole.WithTimeout(cfg.Upstream.Timeout),
		searchconsole.WithLogger(logger),
	)

	var resolver content.Resolver
	if cfg.Content.ResolverURL != "" {
		r, err := contenthttp.NewResolver(cfg.Content.ResolverURL, contenthttp.WithTimeout(cfg.Content.Timeout))
		if err != nil {
			return fmt.Errorf("content resolver: %w", err)
		}
		resolver = r
	}

	tel := telemetry.New()

	coordOpts := []wsync.Option{wsync.WithTelemetry(tel)}
	if cache != nil {
		coordOpts = append(coordOpts, wsync.WithInvalidator(cache))
	}
	coordinator := wsync.NewCoordinator(
		source, metricsRepo, resolver, detector, sweeper, stateRepo, locker,
		wsync.Config{
			Site:         cfg.Upstream.Site,
			LookbackDays: cfg.Sync.LookbackDays,
			MaxRows:      cfg.Upstream.MaxRows,
			HorizonDays:  cfg.Retention.HorizonDays,
			LockTTL:      cfg.Sync.LockTTL,
		},
		logger,
		coordOpts...,
	)

	service := insights.NewService(metricsRepo, oppRepo, stateRepo, coordinator, logger,
		insights.WithCache(cache, cfg.Cache.TTL))

	limiter := ratelimit.NewLimiter(rateStore, logger)
	if n := cfg.RateLimit.APIRequestsPerMinute; n > 0 {
		if err := limiter.Register(ratelimit.TypeAPIRequest, ratelimit.Limit{Rate: n, Period: time.Minute}); err != nil {
			return err
		}
	}
	if n := cfg.RateLimit.SyncTriggersPerHour; n > 0 {
		if err := limiter.Register(ratelimit.TypeSyncTrigger, ratelimit.Limit{Rate: n, Period: time.Hour}); err != nil {
			return err
		}
	}

	handler := insightshttp.NewHandler(service, newZerolog(cfg.Log.Level),
		insightshttp.WithSyncMiddleware(ratelimit.Middleware(limiter, ratelimit.TypeSyncTrigger, logger)))

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewRouter(server.Options{
			API:      handler,
			Metrics:  tel.Handler(),
			Ready:    db,
			Limiter:  limiter,
			APIToken: cfg.Server.APIToken,
			Logger:   logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var wg sync.WaitGroup
	if cfg.Sync.Interval > 0 {
		scheduler := wsync.NewScheduler(coordinator, cfg.Sync.Interval, cfg.Sync.RunOnStart, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	} else {
		logger.Info("sync scheduler disabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"site", cfg.Upstream.Site,
		)
		var err error
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	// An in-flight scheduled sync observes the cancelled context and stops
	wg.Wait()

	logger.Info("server stopped")
	return nil
}

// newZerolog builds the request logger for the insights API
func newZerolog(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
