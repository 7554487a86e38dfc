package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var headingsJSON bool

var headingsCmd = &cobra.Command{
	Use:   "headings [path]",
	Short: "Show the heading outline of a document",
	Long: `Prints the heading structure of one indexed document in document order.
The first entry is the document root, before any heading.`,
	Args: cobra.ExactArgs(1),
	RunE: runHeadings,
}

func init() {
	headingsCmd.Flags().BoolVar(&headingsJSON, "json", false, "output the outline as JSON")
	rootCmd.AddCommand(headingsCmd)
}

func runHeadings(cmd *cobra.Command, args []string) error {
	path := args[0]

	if err := initEngine(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := reconcileService.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling corpus: %w", err)
	}

	outline, err := queryService.GetDocumentHeadings(ctx, path)
	if err != nil {
		return fmt.Errorf("getting headings for %s: %w", path, err)
	}

	if headingsJSON {
		paths := make([][]string, len(outline))
		for i, p := range outline {
			paths[i] = append([]string{}, p...)
		}
		data, err := json.MarshalIndent(paths, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outline: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(path)
	for _, p := range outline {
		if len(p) == 0 {
			cmd.Println("  (root)")
			continue
		}
		cmd.Printf("  %s%s\n", strings.Repeat("  ", len(p)-1), p.Leaf())
	}
	return nil
}
