package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Server cache maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached read model",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.ClearCache(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d entries)\n", res.Message, res.ClearedEntries)
			return nil
		},
	})
	return cmd
}
