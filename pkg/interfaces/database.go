package interfaces

import (
	"context"

	"tumorboard/pkg/types"
)

// CaseStore handles imaging case registry operations.
// ARCHITECTURAL DISCOVERY: Context-first design pattern ensures proper
// cancellation and timeout handling across all registry operations
type CaseStore interface {
	// CreateCase persists a new case; a server-side ID is assigned when the
	// caller did not provide one.
	CreateCase(ctx context.Context, c *types.Case) error

	// GetCase retrieves a case by ID, returning ErrCaseNotFound when absent.
	GetCase(ctx context.Context, caseID string) (*types.Case, error)

	// ListCases returns all registered cases, newest first.
	ListCases(ctx context.Context) ([]*types.Case, error)

	// HealthCheck verifies the underlying store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the underlying store.
	Close() error
}
