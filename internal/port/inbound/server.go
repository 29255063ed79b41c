// Package inbound defines the inbound port interfaces for the gateway core.
package inbound

import (
	"context"
)

// Server is implemented by inbound transports that accept gateway requests.
type Server interface {
	// Start begins serving. Blocks until context is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close gracefully shuts down the server and cleans up resources.
	Close() error
}
