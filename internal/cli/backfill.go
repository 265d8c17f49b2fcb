package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizroom/internal/config"
)

// NewBackfillCmd grants missing rank awards from stored leaderboards.
func NewBackfillCmd(configPath *string) *cobra.Command {
	var quizCode string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Grant rank awards for finished rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			service, cleanup, err := buildService(cmd.Context(), cfg)
			defer cleanup()
			if err != nil {
				return err
			}
			report, err := service.BackfillRankAwards(cmd.Context(), quizCode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d skipped=%d\n", report.Processed, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizCode, "quiz", "", "room code to backfill (default: every room)")
	return cmd
}
