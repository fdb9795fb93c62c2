package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/gogotex/ocrsearch/handlers"
	"github.com/gogotex/ocrsearch/internal/cache"
	"github.com/gogotex/ocrsearch/internal/config"
	"github.com/gogotex/ocrsearch/internal/database"
	"github.com/gogotex/ocrsearch/internal/document/handler"
	"github.com/gogotex/ocrsearch/internal/document/service"
	"github.com/gogotex/ocrsearch/internal/ingest"
	"github.com/gogotex/ocrsearch/internal/ocr/tesseract"
	"github.com/gogotex/ocrsearch/internal/raster/fitz"
	"github.com/gogotex/ocrsearch/internal/search"
	"github.com/gogotex/ocrsearch/internal/storage"
	"github.com/gogotex/ocrsearch/pkg/logger"
	"github.com/gogotex/ocrsearch/pkg/metrics"
	"github.com/gogotex/ocrsearch/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: store=%s archive=%q redis=%v ocr=%s", cfg.Store.Driver, cfg.Archive.Backend, cfg.Redis.Host != "", cfg.OCR.Language)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	files, err := storage.NewLocalStore(cfg.Data.DocumentsDir, cfg.Data.PagesDir)
	if err != nil {
		logger.Fatalf("failed to prepare data directories: %v", err)
	}
	archive, err := storage.NewArchive(ctx, cfg.Archive)
	if err != nil {
		logger.Fatalf("failed to configure %s archive: %v", cfg.Archive.Backend, err)
	}

	// Redis is optional: it backs the search cache and the shared rate limiter.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis %s:%s unavailable, continuing without it: %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	var engineOpts []search.Option
	if rdb != nil && cfg.Redis.CacheTTL > 0 {
		engineOpts = append(engineOpts, search.WithCache(cache.NewRedisCache(rdb, "ocrsearch:search:", cfg.Redis.CacheTTL)))
	}
	engine := search.NewEngine(ctx, store, engineOpts...)
	logger.Infof("search: full-text available=%v", engine.FullTextAvailable())

	renderer := fitz.New(cfg.Raster.RegularScale, cfg.Raster.ZoomScale, cfg.Raster.MaxPages, cfg.Raster.Validate)
	extractor := tesseract.New(cfg.OCR.Language, cfg.OCR.TessdataPrefix)
	logger.Debugf("tesseract %s", tesseract.Version())

	pipeline := ingest.New(store, files, renderer, extractor, ingest.Options{
		Concurrency: int64(cfg.Ingest.Concurrency),
		Archive:     archive,
		OnCommit:    engine.Invalidate,
	})
	svc := service.New(store, engine, pipeline, files, archive)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when the store answers
	r.GET("/ready", func(c *gin.Context) {
		deps := gin.H{"store": true, "redis": rdb != nil, "archive": archive != nil}
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(pctx); err != nil {
			logger.Warnf("readiness: store ping failed: %v", err)
			deps["store"] = false
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterSwagger(r)
	handler.RegisterDocumentRoutes(r, svc, cfg.Ingest.MaxUploadBytes)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting ocrsearch on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	// background ingestions finish on their own; nothing is left half-committed
	pipeline.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Errorf("close store: %v", err)
	}
}
