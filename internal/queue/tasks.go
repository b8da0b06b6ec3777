package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/services"
)

const (
	TaskIngestCorpus = "corpus:ingest"

	// QueueCritical carries ingestion runs.
	QueueCritical = "critical"
)

type IngestCorpusPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewIngestCorpusTask creates a full index rebuild task. reason ends up in the logs
// ("cli", "cron", ...).
func NewIngestCorpusTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestCorpusPayload{
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestCorpus,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue(QueueCritical),
	), nil
}

// RedisConnOpt converts the configured Redis URL into asynq connection options.
func RedisConnOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opts, err := config.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// Ingester runs one ingestion pass.
type Ingester interface {
	Ingest(ctx context.Context) (*models.IngestReport, error)
}

// Task handlers
type TaskProcessor struct {
	ingester Ingester
}

func NewTaskProcessor(ingester Ingester) *TaskProcessor {
	return &TaskProcessor{ingester: ingester}
}

// Register adds every handler of the processor to mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestCorpus, p.ProcessIngestCorpus)
}

func (p *TaskProcessor) ProcessIngestCorpus(ctx context.Context, t *asynq.Task) error {
	var payload IngestCorpusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing ingestion task", "reason", payload.Reason, "requested_at", payload.RequestedAt)

	report, err := p.ingester.Ingest(ctx)
	switch {
	case errors.Is(err, services.ErrEmptyCorpus):
		// Retrying will not make documents appear.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}

	logger.Info("Ingestion task completed",
		"run_id", report.RunID,
		"chunks", report.TotalChunks,
		"skipped", len(report.Skipped()),
	)
	return nil
}
