// Package mcp provides an MCP (Model Context Protocol) server adapter for Docquery.
// It enables AI assistants to list, inspect, and semantically search the
// indexed documentation corpus.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
