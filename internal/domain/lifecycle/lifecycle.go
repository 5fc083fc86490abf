// Package lifecycle holds shared settings for start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds start-up checks and graceful shutdown of servers.
const DefaultTimeout = 10 * time.Second
