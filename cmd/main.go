package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"
	"krishi-mitra-backend/middleware"
	"krishi-mitra-backend/routes"
	"krishi-mitra-backend/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		Component:   "api",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Error("Failed to shutdown tracer", "error", err)
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	kb, err := services.LoadKnowledgeBase(ctx, cfg, embedder)
	if err != nil {
		log.Fatal("Failed to load knowledge base:", err)
	}

	chain, gemini, err := services.NewGenerationChainFromConfig(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize generators:", err)
	}
	defer gemini.Close()

	engine := services.NewQueryEngine(kb, chain, cfg.TopK, metrics)

	// Query log is optional
	var queryLog *services.MongoQueryLog
	if cfg.MongoURI != "" {
		mongoClient, err := config.ConnectMongoDB(cfg)
		if err != nil {
			logger.Warn("Query log disabled", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				mongoClient.Disconnect(ctx)
			}()
			queryLog = services.NewMongoQueryLog(mongoClient.Database(cfg.DBName))
			engine.WithRecorder(queryLog)
		}
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))

	guards := []gin.HandlerFunc{middleware.RequestSizeLimit(cfg.MaxRequestSize)}
	if cfg.RedisURL != "" {
		rdb, err := config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
			guards = append(guards, middleware.RateLimitMiddleware(rdb, cfg))
		}
	}

	routes.SetupHealthRoutes(router, func() routes.HealthStatus {
		return routes.HealthStatus{
			Documents:  kb.Documents.Len(),
			FAQEntries: kb.FAQ.Len(),
			Model:      embedder.ModelName(),
		}
	})
	routes.SetupAskRoutes(router, engine, kb.FAQ, guards...)
	if queryLog != nil {
		routes.SetupQueryLogRoutes(router, queryLog)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "chunks", kb.Documents.Len(), "faq_entries", kb.FAQ.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
