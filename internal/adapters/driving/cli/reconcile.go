package cli

import (
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the chunk cache against the storage directory",
	Long: `Re-chunks and re-embeds new and modified documents, drops deleted ones,
and reports what the pass did. Unchanged documents are reused from the
cache without touching the embedder.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	if err := initEngine(); err != nil {
		return err
	}

	stats, err := reconcileService.Reconcile(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Reconciled %d documents (%d chunks): %d reused, %d re-chunked, %d removed\n",
		stats.Documents, stats.Chunks, stats.Reused, stats.Rechunked, stats.Removed)
	return nil
}
