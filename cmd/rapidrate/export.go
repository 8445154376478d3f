package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/rapidrate/internal/config"
	"github.com/mind-engage/rapidrate/internal/db"
	"github.com/mind-engage/rapidrate/internal/logging"
	"github.com/mind-engage/rapidrate/internal/results"
	"github.com/mind-engage/rapidrate/internal/storage"
)

func exportCmd() *cobra.Command {
	var (
		out   string
		since string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored results as results/<trialID>.json files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if out == "" {
				out = cfg.ExportBasePath
			}
			var from time.Time
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				from = t
			}
			return export(cmd.Context(), cfg, out, from, cmd)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default EXPORT_BASE_PATH)")
	cmd.Flags().StringVar(&since, "since", "", "only results finished since an RFC3339 time or a duration ago (e.g. 24h)")
	return cmd
}

// parseSince accepts an RFC3339 timestamp or a Go duration counted back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("--since %q: want RFC3339 or a positive duration", s)
	}
	return now.Add(-d), nil
}

func export(ctx context.Context, cfg config.Config, out string, since time.Time, cmd *cobra.Command) error {
	log := logging.New(os.Stderr, cfg.LogLevel)

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	bs, err := storage.NewFSStore(out)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	m, err := results.NewSQLStore(dbh).Export(ctx, bs, since)
	if err != nil {
		return err
	}
	log.Info("export done", "results", len(m.Keys), "out", out)
	idx, _ := bs.URL("results/index.json")
	fmt.Fprintln(cmd.OutOrStdout(), idx)
	return nil
}
