package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored image corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, settings)
			if err != nil {
				return err
			}
			stats, err := store.AggregateStatistics(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render statistics: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
