package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Brownie44l1/medscan-api/internal/config"
	"github.com/Brownie44l1/medscan-api/internal/handlers"
	"github.com/Brownie44l1/medscan-api/internal/logger"
	"github.com/Brownie44l1/medscan-api/internal/metrics"
	"github.com/Brownie44l1/medscan-api/internal/middleware"
	"github.com/Brownie44l1/medscan-api/internal/model"
	"github.com/Brownie44l1/medscan-api/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	records, err := store.Connect(ctx, store.Config{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDB,
		Collection: cfg.MongoCollection,
	}, logg)
	cancel()
	if err != nil {
		logg.Fatal("Failed to initialize record store", zap.Error(err))
	}

	// Models load on the first prediction request.
	registry := model.NewRegistry(model.DefaultSpecs(cfg.ModelDir), &model.ONNXLoader{LibraryPath: cfg.ONNXRuntimeLib}, logg)

	handler := handlers.NewHandler(registry, records, handlers.Options{
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logg)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(logg), metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300 * time.Second,
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.Register(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logg.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("model_dir", cfg.ModelDir),
			zap.Strings("endpoints", []string{
				"GET /health",
				"GET /metrics",
				"GET /api/models",
				"POST /api/predictions/upload/mri",
				"POST /api/predictions/upload/xray",
				"GET /api/predictions/result/:id",
			}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server shutdown failed", zap.Error(err))
	}
	if err := registry.Close(); err != nil {
		logg.Error("Failed to release models", zap.Error(err))
	}
	if err := records.Close(shutdownCtx); err != nil {
		logg.Error("Failed to disconnect record store", zap.Error(err))
	}
}
