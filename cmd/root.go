// Package cmd implements the coursechat command line interface.
package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/coursechat/coursechat/internal/app"
	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/log"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "coursechat",
	Short: "Course materials assistant with retrieval-augmented answers",
	Long: `coursechat ingests course material documents into an embedded vector
database and answers questions about them, grounding every answer in the
stored content via tool-calling search.

Requires GEMINI_API_KEY in the environment.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: coursechat.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}

// setup loads configuration, builds the logger and assembles the app.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: logJSON})
	slog.SetDefault(logger)

	return app.New(ctx, cfg, logger)
}
