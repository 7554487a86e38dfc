package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents a single document summary.
type DocumentOutput struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
}

// HeadingsInput is the input schema for the get_document_headings tool.
type HeadingsInput struct {
	Path string `json:"path" jsonschema:"the document path as returned by list_documents"`
}

// HeadingsOutput is the output schema for the get_document_headings tool.
type HeadingsOutput struct {
	Path     string     `json:"path"`
	Headings [][]string `json:"headings"`
}

// SearchInput is the input schema for the search_documentation tool.
type SearchInput struct {
	Query           string   `json:"query" jsonschema:"the natural-language query to search the documentation for"`
	TopK            int      `json:"top_k,omitempty" jsonschema:"maximum number of results to return"`
	SimilarityFloor *float64 `json:"similarity_floor,omitempty" jsonschema:"exclude results with cosine similarity below this value"`
	Document        string   `json:"document,omitempty" jsonschema:"restrict the search to a single document path"`
}

// SearchOutput is the output schema for the search_documentation tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentPath string   `json:"document_path"`
	Headings     []string `json:"headings"`
	Score        float64  `json:"score"`
	Content      string   `json:"content"`
	SourceURL    string   `json:"source_url,omitempty"`
	Truncated    bool     `json:"truncated,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all indexed documentation files",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document_headings",
		Description: "Get the heading outline of a documentation file",
	}, s.handleGetDocumentHeadings)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documentation",
		Description: "Semantically search the indexed documentation",
	}, s.handleSearchDocumentation)

	if s.ports.Reconcile != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "refresh_index",
			Description: "Re-index changed documentation files",
		}, s.handleRefreshIndex)
	}
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Query.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			Path:       docs[i].Path,
			Title:      docs[i].Title,
			ChunkCount: docs[i].ChunkCount,
		}
	}

	return nil, output, nil
}

// handleGetDocumentHeadings handles the get_document_headings tool invocation.
func (s *Server) handleGetDocumentHeadings(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HeadingsInput,
) (*mcp.CallToolResult, HeadingsOutput, error) {
	outline, err := s.ports.Query.GetDocumentHeadings(ctx, input.Path)
	if err != nil {
		return nil, HeadingsOutput{}, err
	}

	output := HeadingsOutput{
		Path:     input.Path,
		Headings: make([][]string, len(outline)),
	}
	for i, path := range outline {
		// The root path marshals as [] rather than null.
		output.Headings[i] = append([]string{}, path...)
	}

	return nil, output, nil
}

// handleSearchDocumentation handles the search_documentation tool invocation.
func (s *Server) handleSearchDocumentation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = s.opts.DefaultTopK
	}
	if topK > s.opts.MaxTopK {
		topK = s.opts.MaxTopK
	}

	floor := input.SimilarityFloor
	if floor == nil && s.opts.DefaultFloor > 0 {
		floor = &s.opts.DefaultFloor
	}

	opts := domain.SearchOptions{
		TopK:            topK,
		SimilarityFloor: floor,
		Document:        input.Document,
	}
	results, err := s.ports.Query.SearchDocumentation(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		content, truncated := snippet(results[i].Chunk.Content, s.opts.SnippetChars)
		output.Results[i] = SearchResultOutput{
			DocumentPath: results[i].DocumentPath,
			Headings:     append([]string{}, results[i].Chunk.Headings...),
			Score:        results[i].Score,
			Content:      content,
			SourceURL:    results[i].Chunk.SourceURL,
			Truncated:    truncated,
		}
	}

	return nil, output, nil
}

// RefreshInput is the input schema for the refresh_index tool.
type RefreshInput struct{}

// RefreshOutput is the output schema for the refresh_index tool.
type RefreshOutput struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Reused    int `json:"reused"`
	Rechunked int `json:"rechunked"`
	Removed   int `json:"removed"`
}

// handleRefreshIndex handles the refresh_index tool invocation.
func (s *Server) handleRefreshIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RefreshInput,
) (*mcp.CallToolResult, RefreshOutput, error) {
	stats, err := s.ports.Reconcile.Reconcile(ctx)
	if err != nil {
		return nil, RefreshOutput{}, err
	}
	return nil, RefreshOutput{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
		Reused:    stats.Reused,
		Rechunked: stats.Rechunked,
		Removed:   stats.Removed,
	}, nil
}

// snippet truncates content to at most limit runes plus an ellipsis,
// reporting whether anything was cut.
func snippet(content string, limit int) (string, bool) {
	runes := []rune(content)
	if len(runes) <= limit {
		return content, false
	}
	return string(runes[:limit]) + "…", true
}
