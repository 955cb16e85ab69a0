package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest course documents from a directory",
	Long: `Ingest parses every course document in the directory (default: the
configured docs_dir), chunks the lesson content and stores it in the vector
database. Courses that are already stored and files that cannot be parsed
are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}

		dir := a.Config.DocsDir
		if len(args) == 1 {
			dir = args[0]
		}

		added, chunks, err := a.System.IngestDirectory(ctx, dir)
		if err != nil {
			return err
		}

		analytics := a.System.Analytics()
		fmt.Printf("Ingested %d new courses (%d chunks) from %s\n", added, chunks, dir)
		fmt.Printf("Corpus now holds %d courses\n", analytics.TotalCourses)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
