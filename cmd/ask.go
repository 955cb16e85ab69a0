package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-off question about the ingested courses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		ans, err := a.System.Answer(ctx, askSessionID, query)
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if len(ans.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range ans.Sources {
				if src.Link != "" {
					fmt.Printf("  - %s (%s)\n", src.Text, src.Link)
				} else {
					fmt.Printf("  - %s\n", src.Text)
				}
			}
		}
		fmt.Printf("\nSession: %s\n", ans.SessionID)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "continue an existing session")
	rootCmd.AddCommand(askCmd)
}
