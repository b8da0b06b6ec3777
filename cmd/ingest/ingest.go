package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"krishi-mitra-backend/internal/ai"
	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/internal/logger"
	"krishi-mitra-backend/internal/queue"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/services"

	"github.com/hibiken/asynq"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type ingestOptions struct {
	corpusDir  string
	dataDir    string
	enqueue    bool
	jsonOutput bool
	noProgress bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newIngestCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the document index from the corpus folder",
		Long: `Extract every supported document in the corpus folder (.pdf, .txt, .md, .html,
.xlsx, optionally brotli-compressed as *.br), split it into chunks, embed them and
replace the persisted index.

With --enqueue the rebuild is handed to the background worker instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.corpusDir, "corpus", "", "Corpus folder (overrides CORPUS_DIR)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for index artifacts (overrides DATA_DIR)")
	cmd.Flags().BoolVar(&opts.enqueue, "enqueue", false, "Queue the rebuild for the worker instead of running it here")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, opts ingestOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.corpusDir != "" {
		cfg.CorpusDir = opts.corpusDir
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	logger.InitLoggerTo(cmd.ErrOrStderr(), cfg)

	if opts.enqueue {
		return enqueueIngest(cmd.OutOrStdout(), cfg)
	}

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	pipeline := services.NewPipelineFromConfig(cfg, embedder, nil)
	var bar *progressbar.ProgressBar
	if !opts.noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		pipeline.OnProgress(func(done, total int, doc models.DocumentReport) {
			if bar == nil {
				bar = newProgressBar(total)
			}
			bar.Describe(doc.Name)
			_ = bar.Set(done)
		})
	}

	report, err := pipeline.Ingest(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if report != nil {
		if printErr := printReport(cmd.OutOrStdout(), report, opts.jsonOutput); printErr != nil {
			return printErr
		}
	}
	if errors.Is(err, services.ErrEmptyCorpus) {
		return fmt.Errorf("%w in %s", err, cfg.CorpusPath())
	}
	return err
}

func enqueueIngest(w io.Writer, cfg *config.Config) error {
	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		return err
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	task, err := queue.NewIngestCorpusTask("cli")
	if err != nil {
		return err
	}
	info, err := client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue ingestion: %w", err)
	}
	fmt.Fprintf(w, "Queued ingestion task %s on queue %q\n", info.ID, info.Queue)
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func printReport(w io.Writer, report *models.IngestReport, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tCHUNKS\tNOTE")
	for _, d := range report.Documents {
		note := ""
		if d.Skipped {
			note = "skipped: " + d.Reason
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Name, d.Chunks, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d chunks from %d documents (%d skipped), model %s, run %s\n",
		report.TotalChunks,
		len(report.Documents)-len(report.Skipped()),
		len(report.Skipped()),
		report.Model,
		report.RunID,
	)
	return nil
}
