package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/lorekeeper/internal/crawl"
	"github.com/IshaanNene/lorekeeper/internal/profile"
	"github.com/IshaanNene/lorekeeper/internal/storage"
)

// statusCmd creates the "status" subcommand.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show harvest progress and configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg.Logging)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			prof, err := profile.Load(cfg.Site.ProfilePath)
			if err != nil {
				return err
			}
			set, err := crawl.OpenVisited(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer set.Release(ctx)

			stage, err := storage.NewStage(cfg.Storage.StageDir, logger)
			if err != nil {
				return err
			}
			staged, err := stage.Count()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Item", "Value"})
			t.AppendRows([]table.Row{
				{"Site", cfg.Site.BaseURL},
				{"Profile", prof.Name},
				{"Fetcher", cfg.Fetcher.Type},
				{"Retry policy", fmt.Sprintf("%d attempts, %s apart", cfg.Fetcher.MaxAttempts, cfg.Fetcher.RetryDelay)},
				{"Visited backend", cfg.Visited.Backend},
				{"Visited documents", set.Len()},
				{"Staged documents", staged},
				{"Batch size", cfg.Ingest.BatchSize},
				{"Ingesters", strings.Join(cfg.Ingest.Types, ", ")},
			})
			t.AppendSeparator()
			for _, c := range profile.Categories {
				specs, err := prof.Walkers(c)
				if err != nil {
					t.AppendRow(table.Row{"Category " + c, "not in profile"})
					continue
				}
				kinds := make([]string, len(specs))
				for i, s := range specs {
					kinds[i] = string(s.Kind)
				}
				t.AppendRow(table.Row{"Category " + c, strings.Join(kinds, " → ")})
			}
			t.Render()
			return nil
		},
	}
}
