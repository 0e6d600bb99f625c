package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/static"

	"page-builder/internal/builder/assets"
	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/handlers"
	"page-builder/internal/builder/registry"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
	"page-builder/internal/builder/service"
	"page-builder/internal/common/config"
	"page-builder/internal/common/logger"
	"page-builder/internal/common/middleware"
)

// ============================================================
// Page Builder Service
// ============================================================

func main() {
	cfg := config.Load()

	logs, err := logger.New().WithLevel(cfg.LogLevel).Pretty(cfg.IsDevelopment()).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()
	log := logs.Logger

	ctx := context.Background()
	db, dialect, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open db")
	}
	defer db.Close()

	sqlRepo := repository.New(db, dialect, log.With().Str("component", "repository").Logger())
	if err := sqlRepo.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("init db")
	}
	pages := repository.NewCached(sqlRepo, repository.CacheConfig{
		TTL:        cfg.PageCacheTTL,
		MaxEntries: cfg.PageCacheSize,
	})

	store, err := newAssetStore(cfg.Assets)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Assets.Backend).Msg("init asset store")
	}

	reg := registry.Default()
	dispatcher, err := render.NewDispatcher(reg, render.WithLogger(log.With().Str("component", "render").Logger()))
	if err != nil {
		log.Fatal().Err(err).Msg("renderer does not cover the registry")
	}

	sessions, err := service.NewSessionManager(cfg.SessionLimit, func(sid string) *controller.Controller {
		return controller.New(reg, dispatcher, pages,
			controller.WithLogger(log.With().Str("session", sid).Logger()),
		)
	}, log.With().Str("component", "sessions").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("init sessions")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Page Builder",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(middleware.Recover())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Routes
	// ============================================================

	health := handlers.NewHealthHandler(sqlRepo)
	handlers.Register(app, handlers.Handlers{
		Health:  health,
		Builder: handlers.NewBuilderHandler(sessions, reg, store, log.With().Str("component", "builder").Logger()),
		Pages:   handlers.NewPagesHandler(pages, dispatcher, log.With().Str("component", "pages").Logger()),
		Assets:  handlers.NewAssetsHandler(store, log.With().Str("component", "assets").Logger()),
	})

	// файлы ассетов отдаются напрямую только для file backend
	if cfg.Assets.Backend != "s3" {
		app.Get(strings.TrimRight(cfg.Assets.BaseURL, "/")+"*", static.New(cfg.Assets.Root))
	}

	health.MarkStarted()

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().
		Str("addr", addr).
		Str("env", cfg.Environment).
		Str("db", string(dialect)).
		Str("assets", cfg.Assets.Backend).
		Msg("starting page builder")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func newAssetStore(cfg config.AssetConfig) (assets.Store, error) {
	switch cfg.Backend {
	case "s3":
		return assets.NewS3Store(assets.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
			PublicURL: cfg.S3.PublicURL,
			Quota:     cfg.QuotaBytes,
		})
	case "file", "":
		return assets.NewFileStore(cfg.Root, cfg.BaseURL, cfg.QuotaBytes), nil
	}
	return nil, fmt.Errorf("unknown asset backend %q", cfg.Backend)
}
