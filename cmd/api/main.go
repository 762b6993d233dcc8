package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pblboard/api/internal/app"
	"pblboard/api/internal/config"
	"pblboard/api/internal/export"
	"pblboard/api/internal/generate"
	"pblboard/api/internal/gitrepo"
	"pblboard/api/internal/llm"
	"pblboard/api/internal/logger"
	"pblboard/api/internal/realtime"
	"pblboard/api/internal/search"
	"pblboard/api/internal/session"
	"pblboard/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(ctx, time.Minute)
	db, err := store.Open(openCtx, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		lg.Fatal("database connection failed", "error", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		lg.Fatal("migrations failed", "error", err)
	}
	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		lg.Fatal("failed to create repos dir", "error", err)
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{
		Store: dataStore,
		Git:   gitrepo.New(cfg.ReposDir),
		Log:   lg,
	}

	// Search: Meilisearch when configured, Postgres full text otherwise.
	pgfts := search.NewPgFTS(db)
	var meili search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		m := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, lg)
		defer m.Close()
		meili = m
	}
	searchService := search.NewService(meili, pgfts, lg)
	go searchService.ReindexAllFromPG(ctx, pgfts)
	deps.Search = searchService

	// Refresh sessions and realtime rooms share Redis when it is configured.
	var (
		bus     realtime.Bus
		storage realtime.Storage
	)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		lg.Info("using redis for refresh sessions and realtime")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			lg.Fatal("redis connection failed", "error", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		bus, storage = redisRealtime(redisStore.Client(), lg)
	} else {
		lg.Info("using postgres for refresh sessions and in-process realtime")
		deps.Sessions = dataStore
		bus, storage = realtime.NewLocalBus(), realtime.NewMemoryStorage()
	}
	rt := realtime.NewService(bus, storage, lg)
	go func() {
		if err := rt.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("realtime subscriber stopped", "error", err)
		}
	}()
	deps.Realtime = rt

	var uploader export.Uploader
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		objects, err := export.NewObjectStore(ctx, export.ObjectStoreConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.ExportBucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			lg.Warn("export object storage unavailable", "error", err)
		} else {
			uploader = objects
		}
	}
	deps.Export = export.NewService(dataStore, uploader, lg)

	if cfg.AnthropicAPIKey == "" {
		lg.Warn("ANTHROPIC_API_KEY is not set; generation endpoints will fail")
	}
	deps.AI = generate.New(llm.NewClient(llm.Config{
		APIKey:     cfg.AnthropicAPIKey,
		BaseURL:    cfg.AnthropicBaseURL,
		Model:      cfg.AnthropicModel,
		Timeout:    cfg.LLMTimeout,
		MaxTokens:  cfg.LLMMaxTokens,
		MaxRetries: cfg.LLMMaxRetries,
	}, lg), lg)

	service := app.New(cfg, deps)
	runDone := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(runDone)
	}()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// event streams and standards streaming stay open
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		lg.Info("PBL board API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Warn("shutdown error", "error", err)
	}
	// pending board saves are flushed by Run once ctx ends
	select {
	case <-runDone:
	case <-shutdownCtx.Done():
		lg.Warn("timed out flushing editing sessions")
	}
}

func redisRealtime(rdb *redis.Client, lg *logger.Logger) (realtime.Bus, realtime.Storage) {
	return realtime.NewRedisBus(rdb, lg), realtime.NewRedisStorage(rdb)
}
