package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the indexed documentation files",
	RunE:  runDocuments,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if err := initEngine(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := reconcileService.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling corpus: %w", err)
	}

	docs, err := queryService.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputDocumentsTable(cmd, docs)
}

func outputDocumentsTable(cmd *cobra.Command, docs []domain.Document) error {
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s — %s (%d chunks)\n", docs[i].Path, docs[i].Title, docs[i].ChunkCount)
	}
	cmd.Println()
	cmd.Printf("%d documents\n", len(docs))
	return nil
}
