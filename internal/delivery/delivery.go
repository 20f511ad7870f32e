// Package delivery defines the contract every transport entry point
// (HTTP server, workers) fulfills so the runner can serve them uniformly.
package delivery

import "context"

// Delivery is a long-running transport server.
type Delivery interface {
	// Serve blocks until the server stops or fails.
	Serve(ctx context.Context) error
}
