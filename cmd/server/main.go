package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/emredev/trendyol-listing-extractor/internal/api"
	"github.com/emredev/trendyol-listing-extractor/internal/config"
	"github.com/emredev/trendyol-listing-extractor/internal/extractor"
	"github.com/emredev/trendyol-listing-extractor/internal/fetch"
	"github.com/emredev/trendyol-listing-extractor/internal/images"
	"github.com/emredev/trendyol-listing-extractor/internal/ratelimit"
	"github.com/emredev/trendyol-listing-extractor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Per-client rate limiting: Redis when configured, in-memory otherwise.
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, falling back to in-memory rate limiting", "error", err)
		} else {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow)
		}
	}

	fetchClient := fetch.NewClient(fetch.Options{
		Hosts:          cfg.Marketplace.Hosts,
		Relays:         cfg.Fetch.Relays,
		BlockMarkers:   cfg.Marketplace.BlockMarkers,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		AttemptTimeout: cfg.Fetch.AttemptTimeout,
		MinBodyBytes:   cfg.Fetch.MinBodyBytes,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
	}, log)

	imageCollector := images.NewCollector(cfg.Marketplace.CDNHosts, cfg.Marketplace.ImageDenylist)
	extractorService := extractor.NewService(fetchClient, imageCollector, log)
	handlers := api.NewHandlers(extractorService, limiter, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(handlers.RateLimit).Post("/extract", handlers.Extract)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
