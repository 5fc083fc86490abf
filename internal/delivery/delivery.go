// Package delivery holds the transports that expose lavra to the outside world.
package delivery

import "context"

// Delivery is a long-running transport started by the application after the fx graph is built.
type Delivery interface {
	Serve(ctx context.Context) error
}
