package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coursechat/coursechat/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the docs directory and run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}

		// Load any course documents present at startup. A missing docs
		// directory is fine: the API still serves an empty corpus.
		if _, err := os.Stat(a.Config.DocsDir); err == nil {
			added, chunks, err := a.System.IngestDirectory(ctx, a.Config.DocsDir)
			if err != nil {
				return err
			}
			a.Logger.Info("startup ingestion finished",
				"dir", a.Config.DocsDir, "courses_added", added, "chunks", chunks)
		} else {
			a.Logger.Warn("docs directory not found, skipping startup ingestion",
				"dir", a.Config.DocsDir)
		}

		return api.NewServer(a.System, a.Logger).Run(ctx, a.Config.HTTPAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
