package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/telemetry"
	"krishi-mitra-backend/models"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrEmptyCorpus means no document produced a chunk. Nothing is written.
	ErrEmptyCorpus = errors.New("no text chunks were created from the corpus")

	// ErrIngestionInProgress means another run holds the ingestion lock.
	ErrIngestionInProgress = errors.New("another ingestion run is in progress")
)

// IngestLockFile is created in the data directory while a run is active.
const IngestLockFile = ".ingest.lock"

// TextExtractor turns a document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc models.Document) (string, error)
}

// ProgressFunc is called after each document with the number processed so far.
type ProgressFunc func(done, total int, doc models.DocumentReport)

// Pipeline rebuilds the document index from a corpus.
type Pipeline struct {
	source    DocumentSource
	extractor TextExtractor
	segmenter *Segmenter
	embedder  ai.Embedder
	store     *IndexStore
	lockPath  string
	metrics   *telemetry.Metrics
	progress  ProgressFunc
}

func NewPipeline(source DocumentSource, extractor TextExtractor, segmenter *Segmenter, embedder ai.Embedder, store *IndexStore, lockPath string) *Pipeline {
	return &Pipeline{
		source:    source,
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		store:     store,
		lockPath:  lockPath,
	}
}

func (p *Pipeline) WithMetrics(m *telemetry.Metrics) *Pipeline {
	p.metrics = m
	return p
}

func (p *Pipeline) OnProgress(fn ProgressFunc) *Pipeline {
	p.progress = fn
	return p
}

// Ingest extracts, segments and embeds every document, then replaces the persisted
// index. Documents that fail extraction are skipped and listed in the report. The
// report is returned alongside ErrEmptyCorpus so callers can show what was skipped.
func (p *Pipeline) Ingest(ctx context.Context) (*models.IngestReport, error) {
	if err := os.MkdirAll(filepath.Dir(p.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lock := flock.New(p.lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	if !acquired {
		return nil, ErrIngestionInProgress
	}
	defer lock.Unlock()

	tracer := otel.Tracer("ingestion")
	ctx, span := tracer.Start(ctx, "ingest.run")
	defer span.End()

	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		Model:     p.embedder.ModelName(),
		StartedAt: time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("ingest.run_id", report.RunID))

	docs, err := p.source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	log := logger.With("run_id", report.RunID)
	log.Info("Ingestion started", "documents", len(docs), "model", report.Model)

	var chunks []models.Chunk
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docReport := p.processDocument(ctx, doc, &chunks)
		report.Documents = append(report.Documents, docReport)
		if p.progress != nil {
			p.progress(i+1, len(docs), docReport)
		}
	}
	report.TotalChunks = len(chunks)
	span.SetAttributes(
		attribute.Int("ingest.documents", len(docs)),
		attribute.Int("ingest.chunks", len(chunks)),
	)

	if len(chunks) == 0 {
		report.FinishedAt = time.Now().UTC()
		log.Error("Ingestion produced no chunks", "skipped", len(report.Skipped()))
		return report, ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if err := p.store.Replace(report.Model, chunks, vectors); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	report.FinishedAt = time.Now().UTC()
	p.metrics.RecordIngest(ctx, len(chunks))
	for _, d := range report.Documents {
		if d.Skipped {
			log.Warn("Document skipped", "document", d.Name, "reason", d.Reason)
			continue
		}
		log.Info("Document ingested", "document", d.Name, "chunks", d.Chunks)
	}
	log.Info("Ingestion finished",
		"chunks", report.TotalChunks,
		"skipped", len(report.Skipped()),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return report, nil
}

func (p *Pipeline) processDocument(ctx context.Context, doc models.Document, chunks *[]models.Chunk) models.DocumentReport {
	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		logger.Warn("Failed to extract document", "document", doc.Name, "error", err)
		return models.DocumentReport{Name: doc.Name, Skipped: true, Reason: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return models.DocumentReport{Name: doc.Name, Skipped: true, Reason: "no extractable text"}
	}

	docChunks := p.segmenter.Chunks(doc.Name, text)
	*chunks = append(*chunks, docChunks...)
	return models.DocumentReport{Name: doc.Name, Chunks: len(docChunks)}
}
