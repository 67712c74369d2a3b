package interfaces

import "context"

// Notifier sends a human-readable message somewhere: a persistent queue, a
// chat transport, or both. Implementations own size limits and splitting;
// callers hand over whole messages.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}
