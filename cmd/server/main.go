package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"askgate/internal/catalog"
	"askgate/internal/config"
	"askgate/internal/crypto"
	"askgate/internal/metrics"
	"askgate/internal/providers"
	"askgate/internal/providers/registry"
	"askgate/internal/queue"
	"askgate/internal/relay"
	"askgate/internal/storage"
	"askgate/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Int("port", cfg.ListenPort()).
		Str("catalog_source", cfg.Catalog.Source).
		Int64("admission_rate_per_minute", cfg.Rate.PerMinute).
		Msg("starting askgate")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	clientOpts := catalog.ClientOptions{
		HTTPClient:  &http.Client{Timeout: cfg.HTTP.ClientTimeout},
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.HTTP.BackoffBase,
	}

	var keyring *crypto.Keyring
	if len(cfg.Crypto.Keys) > 0 {
		keyring, err = crypto.NewKeyring(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize keyring")
		}
	}

	var source catalog.Source
	switch cfg.Catalog.Source {
	case config.CatalogSourceFile:
		source = catalog.NewFileSource(cfg.Catalog.File, clientOpts, log.Logger)
		log.Info().Str("file", cfg.Catalog.File).Msg("using file catalog")
	default:
		store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize storage")
		}
		defer store.Close()

		source = catalog.NewStoreSource(store, keyring, clientOpts, log.Logger)
		log.Info().Str("driver", cfg.DB.Driver).Msg("using database catalog")
	}

	// Relayed custom_openai sessions carry their api key sealed, so they need a keyring.
	var customChat ws.CustomChatFactory
	if keyring != nil {
		customChat = func(model, apiKey, baseURL string) (providers.ChatModel, error) {
			return registry.CustomOpenAI(model, apiKey, baseURL, registry.BuildOptions{
				HTTPClient:  clientOpts.HTTPClient,
				MaxRetries:  clientOpts.MaxRetries,
				BackoffBase: clientOpts.BackoffBase,
			})
		}
	} else {
		log.Warn().Msg("no master key configured, custom_openai connections will be rejected")
	}

	inbound := queue.NewStreamQueue(rdb, queue.StreamConfig{
		Stream: cfg.Redis.RelayStream,
		Group:  cfg.Redis.RelayGroup,
		MaxLen: cfg.Redis.RelayMaxLen,
	})
	if err := inbound.EnsureGroup(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare relay stream")
	}

	admissionCfg := ws.Config{
		Resolver:       ws.NewResolver(source, customChat),
		Handler:        relay.New(relay.Config{Queue: inbound, Keyring: keyring, Logger: log.Logger}),
		Logger:         log.Logger.With().Str("component", "ws").Logger(),
		Metrics:        metrics.Global(),
		SignalInterval: cfg.WS.SignalInterval,
		ReadLimit:      cfg.WS.ReadLimit,
		MaxInFlight:    cfg.WS.MaxInFlight,
		CloseTimeout:   cfg.WS.CloseTimeout,
	}
	if cfg.Rate.PerMinute > 0 {
		admissionCfg.RateLimiter = queue.NewRateLimiter(rdb, cfg.Rate.PerMinute, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.ListenPort())),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	ws.Attach(httpServer, ws.NewAdmission(admissionCfg), cfg, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
