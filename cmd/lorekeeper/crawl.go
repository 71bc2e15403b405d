package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/lorekeeper/internal/config"
	"github.com/IshaanNene/lorekeeper/internal/crawl"
	"github.com/IshaanNene/lorekeeper/internal/ingest"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/storage"
)

var (
	reset       bool
	batchSize   int
	maxAttempts int
	fetcherType string
	noCommit    bool
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <category>|all",
		Short: "Harvest one category, or all of them",
		Long: fmt.Sprintf(`Harvest the documents of one category, or of every category in order.

Categories: %s

Documents already in the visited set are skipped, so the command can be
rerun after an interruption without fetching anything twice.`, strings.Join(profile.Categories, ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: append([]string{"all"}, profile.Categories...),
		RunE:      runCrawl,
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "clear the visited set before crawling")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "documents per ingest batch (0 = config default)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "fetch attempts per page (0 = config default)")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http or browser")
	cmd.Flags().BoolVar(&noCommit, "no-final-commit", false, "leave the last partial batch staged")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	orch, err := crawl.New(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := orch.Close(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if reset {
		if err := orch.Reset(ctx); err != nil {
			return fmt.Errorf("reset visited set: %w", err)
		}
	}

	category := strings.ToLower(args[0])
	logger.Info("starting crawl", "category", category, "base_url", cfg.Site.BaseURL, "batch_size", cfg.Ingest.BatchSize)

	var report crawl.Report
	if category == "all" {
		report, err = orch.RunAll(ctx)
	} else {
		report, err = orch.Run(ctx, category)
	}

	stats := metrics.Snapshot()
	logger.Info("crawl finished",
		"documents", report.Documents,
		"visited", report.Visited,
		"elapsed", report.Duration,
		"requests", stats["requests_total"],
		"retries", stats["requests_retried"],
		"batches", stats["batches_committed"],
	)

	fmt.Printf("\nCrawl of %s finished in %s\n", category, report.Duration.Round(time.Millisecond))
	fmt.Printf("   Documents: %d written, %v skipped, %v failed\n", report.Documents, stats["documents_skipped"], stats["documents_failed"])
	fmt.Printf("   Visited:   %d total\n", report.Visited)
	fmt.Printf("   Batches:   %v committed (%v documents)\n", stats["batches_committed"], stats["documents_ingested"])

	if err != nil && crawl.IsFatal(err) {
		logger.Error("crawl halted", "error", err)
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nInterrupted. Progress is saved; rerun the same command to resume.")
		return nil
	}
	return err
}

// ingestCmd creates the "ingest" subcommand that commits the stage now.
// It opens only the stage and the ingesters.
func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Commit every staged document to the ingesters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg.Logging)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			stage, err := storage.NewStage(cfg.Storage.StageDir, logger)
			if err != nil {
				return err
			}
			ingester, err := ingest.New(ctx, &cfg.Ingest, logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := ingester.Close(context.WithoutCancel(ctx)); closeErr != nil {
					err = errors.Join(err, fmt.Errorf("close ingester: %w", closeErr))
				}
			}()

			committer := crawl.NewCommitter(stage, ingester, observability.NewMetrics(logger), logger)
			n, err := committer.Commit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d staged documents\n", n)
			return nil
		},
	}
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if batchSize > 0 {
		cfg.Ingest.BatchSize = batchSize
	}
	if maxAttempts > 0 {
		cfg.Fetcher.MaxAttempts = maxAttempts
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if noCommit {
		cfg.Ingest.CommitOnFinish = false
	}
}
