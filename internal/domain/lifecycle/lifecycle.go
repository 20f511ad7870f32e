// Package lifecycle holds shared lifecycle constants for graceful shutdown.
package lifecycle

import "time"

// DefaultTimeout bounds graceful-shutdown operations.
const DefaultTimeout = 10 * time.Second
