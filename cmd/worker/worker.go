package main

import (
	"context"
	"log"
	"time"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/queue"
	"krishi-mitra-backend/internal/scheduler"
	"krishi-mitra-backend/internal/telemetry"
	"krishi-mitra-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		Component:   "worker",
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

	embedder, err := ai.NewEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	pipeline := services.NewPipelineFromConfig(cfg, embedder, metrics)

	// Redis options for Asynq
	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Worker needs Redis:", err)
	}

	// Scheduled re-ingestion goes through the queue like manual runs.
	if cfg.IngestCron != "" {
		client := asynq.NewClient(redisOpt)
		defer client.Close()

		sched := scheduler.NewScheduler()
		err := sched.ScheduleCron("ingest-corpus", cfg.IngestCron, func() error {
			task, err := queue.NewIngestCorpusTask("cron")
			if err != nil {
				return err
			}
			info, err := client.Enqueue(task)
			if err != nil {
				return err
			}
			logger.Info("Ingestion task enqueued", "task_id", info.ID, "queue", info.Queue)
			return nil
		})
		if err != nil {
			log.Fatal("Invalid INGEST_CRON:", err)
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("Ingestion scheduled", "cron", cfg.IngestCron)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				"default":           3,
				"low":               1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pipeline)
	mux := asynq.NewServeMux()
	processor.Register(mux)

	logger.Info("Starting Asynq worker",
		"concurrency", cfg.WorkerConcurrency,
		"redis", redisOpt.Addr,
		"corpus", cfg.CorpusPath(),
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
