package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the catalog from the storage backend",
	Long: `Walk the storage backend and bring the catalog in line with it:
every stored document gets an up to date record and records of documents
that no longer exist are pruned.

Requires a catalog (--catalog sqlite|postgres).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
			result, err := service.Reindex(cmd.Context())
			if err != nil {
				return err
			}

			slog.Info("reindex complete", "indexed", result.Indexed, "pruned", result.Pruned)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d document(s), pruned %d stale record(s)\n", result.Indexed, result.Pruned)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
