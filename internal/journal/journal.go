// Package journal provides the durable, ordered event log the account runner
// appends to and replays from. Appends are atomic and ordered per account
// identifier; Append returns only after the event is durable.
package journal

import (
	"context"

	"main/internal/account"
)

// Log is the event log contract consumed by the runner and the offline
// rebuild tooling.
type Log interface {
	// Append persists one event for the identifier and returns once it is
	// durable.
	Append(ctx context.Context, accountID string, evt account.Event) error
	// ReadAll returns every event for the identifier in emission order.
	ReadAll(ctx context.Context, accountID string) ([]account.Event, error)
	// Identifiers lists every account identifier with at least one event.
	Identifiers(ctx context.Context) ([]string, error)
	Close() error
}
