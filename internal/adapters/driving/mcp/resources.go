package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Docquery resources.
	uriScheme = "docquery://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all indexed documentation files",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a document's heading outline.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{path}/headings",
		Name:        "document-headings",
		Description: "Heading outline of a specific document",
		MIMEType:    "application/json",
	}, s.handleHeadingsResource)

	// Template for document content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{path}",
		Name:        "document-content",
		Description: "Indexed content of a specific document",
		MIMEType:    "text/markdown",
	}, s.handleContentResource)
}

// handleDocumentsResource returns a list of all indexed documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Query.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = DocumentOutput{
			Path:       docs[i].Path,
			Title:      docs[i].Title,
			ChunkCount: docs[i].ChunkCount,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleHeadingsResource returns the outline of a specific document.
func (s *Server) handleHeadingsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract path from URI: docquery://documents/{path}/headings
	docPath := extractDocumentPath(req.Params.URI)
	if docPath == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	outline, err := s.ports.Query.GetDocumentHeadings(ctx, docPath)
	if err != nil {
		return nil, fmt.Errorf("getting document headings: %w", err)
	}

	headings := make([][]string, len(outline))
	for i, path := range outline {
		headings[i] = append([]string{}, path...)
	}

	data, err := json.MarshalIndent(headings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling headings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleContentResource reconstructs a document's indexed content from
// its chunks, in order, with each chunk introduced by its heading trail.
func (s *Server) handleContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract path from URI: docquery://documents/{path}
	docPath := strings.TrimPrefix(req.Params.URI, uriScheme+"documents/")
	if docPath == "" || docPath == req.Params.URI {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunks, err := s.ports.Query.GetDocumentChunks(ctx, docPath)
	if err != nil {
		return nil, fmt.Errorf("getting document content: %w", err)
	}

	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if trail := strings.Join(chunk.Headings, " > "); trail != "" {
			fmt.Fprintf(&b, "## %s\n\n", trail)
		}
		b.WriteString(chunk.Content)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     b.String(),
		}},
	}, nil
}

// extractDocumentPath extracts the document path from a URI like
// docquery://documents/{path}/headings.
func extractDocumentPath(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/headings"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
