package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	searchTopK     int
	searchFloor    float64
	searchDocument string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the documentation",
	Long: `Embeds the query and returns the chunks most similar to it by cosine
similarity, with their document path and heading trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64Var(&searchFloor, "floor", 0, "exclude results scoring below this similarity")
	searchCmd.Flags().StringVar(&searchDocument, "document", "", "restrict the search to one document path")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if err := initEngine(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := reconcileService.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling corpus: %w", err)
	}

	opts := domain.SearchOptions{
		TopK:     searchTopK,
		Document: searchDocument,
	}
	if opts.TopK <= 0 {
		opts.TopK = appConfig.Search.Limit
	}
	if cmd.Flags().Changed("floor") {
		opts.SimilarityFloor = &searchFloor
	} else if appConfig.Search.Floor > 0 {
		opts.SimilarityFloor = &appConfig.Search.Floor
	}

	results, err := queryService.SearchDocumentation(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		trail := strings.Join(results[i].Chunk.Headings, " > ")
		if trail == "" {
			trail = "(document root)"
		}

		cmd.Printf("  [%d] %s — %s (%.2f)\n", i+1, results[i].DocumentPath, trail, results[i].Score)
		if results[i].Chunk.SourceURL != "" {
			cmd.Printf("      Source: %s\n", results[i].Chunk.SourceURL)
		}
		cmd.Printf("      %s\n", firstLine(results[i].Chunk.Content))
		cmd.Println()
	}

	return nil
}

// firstLine returns the first non-empty line of content as a preview.
func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
