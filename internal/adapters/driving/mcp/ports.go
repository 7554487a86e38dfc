package mcp

import (
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers document and search queries.
	Query driving.QueryService

	// Reconcile triggers reconciliation passes. Optional: when nil the
	// server is read-only and relies on an external reconciliation loop.
	Reconcile driving.ReconcileService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Reconcile is optional
	return nil
}
