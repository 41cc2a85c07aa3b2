package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gorm.io/gorm/logger"

	"github.com/thebtf/dilse/internal/activity"
	"github.com/thebtf/dilse/internal/catalog"
	"github.com/thebtf/dilse/internal/config"
	gormstore "github.com/thebtf/dilse/internal/db/gorm"
	"github.com/thebtf/dilse/internal/generation"
	"github.com/thebtf/dilse/internal/identity"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/internal/practice"
	"github.com/thebtf/dilse/internal/watcher"
	"github.com/thebtf/dilse/internal/worker"
)

// runServe starts the worker and blocks until ctx is cancelled or a watched
// file changes.
func runServe(ctx context.Context) error {
	if err := config.EnsureAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if !debug && cfg.LogLevel != "" {
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	for _, problem := range cfg.Validate() {
		log.Warn().Err(problem).Msg("Configuration problem")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("Unknown timezone, using local time")
		loc = time.Local
	}

	store, closeStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	adapter := identity.NewAdapter(identity.NewFirebaseProvider(identity.FirebaseConfig{
		APIKey:  cfg.FirebaseAPIKey,
		BaseURL: cfg.FirebaseBaseURL,
		Timeout: cfg.IdentityTimeoutDuration(),
	}))
	defer adapter.Close()

	reader := sdkmetric.NewManualReader()
	meters := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(meters)
	defer func() {
		if err := meters.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down meter provider")
		}
	}()

	engine := practice.NewEngine(store,
		practice.WithLocation(loc),
		practice.WithMeterProvider(meters),
	)
	defer engine.Close()

	svc := worker.NewService(worker.Deps{
		Version:    Version,
		Config:     cfg,
		Adapter:    adapter,
		Engine:     engine,
		Activity:   activity.NewService(store, engine, cat, activity.WithLocation(loc)),
		Generation: newGeneration(ctx, cfg),
		Catalog:    cat,
		Metrics:    reader,
	})
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	ctx, restart := context.WithCancel(ctx)
	defer restart()
	stopWatchers := startWatchers(restart, config.SettingsPath(), cfg.CatalogPath)
	defer stopWatchers()

	<-ctx.Done()
	log.Info().Msg("Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), worker.ShutdownTimeout)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

// openLedger opens the configured store. The returned func closes it.
func openLedger(cfg *config.Config) (ledger.Store, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store, entries are lost on exit")
		return ledger.NewMemoryStore(), func() {}, nil
	}

	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	store, err := gormstore.NewStore(gormstore.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DatabaseDSN,
		MaxConns: cfg.MaxConns,
		LogLevel: level,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	log.Info().Str("driver", store.Driver()).Msg("Ledger store opened")

	return gormstore.NewLedger(store), func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}, nil
}

// newGeneration returns a generation service. Without an API key, or if the
// client cannot be built, chat replies report the missing configuration.
func newGeneration(ctx context.Context, cfg *config.Config) *generation.Service {
	opts := []generation.Option{
		generation.WithMaxTokens(cfg.MaxMessageTokens),
		generation.WithTimeout(cfg.GenerationTimeoutDuration()),
	}
	if cfg.GeminiAPIKey == "" {
		return generation.NewService(nil, opts...)
	}
	gen, err := generation.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Gemini client, chat replies disabled")
		return generation.NewService(nil, opts...)
	}
	log.Info().Str("model", gen.Name()).Msg("Gemini generator ready")
	return generation.NewService(gen, opts...)
}

// startWatchers restarts the worker when the settings or catalog file
// changes; a supervisor is expected to start it again.
func startWatchers(restart context.CancelFunc, paths ...string) func() {
	var started []*watcher.Watcher
	for _, path := range paths {
		if path == "" {
			continue
		}
		w, err := watcher.New(path, func() {
			log.Warn().Str("path", path).Msg("Watched file changed, exiting for restart...")
			restart()
		})
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to create file watcher")
			continue
		}
		if err := w.Start(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to start file watcher")
			continue
		}
		log.Info().Str("path", path).Msg("File watcher started")
		started = append(started, w)
	}
	return func() {
		for _, w := range started {
			_ = w.Stop()
		}
	}
}
