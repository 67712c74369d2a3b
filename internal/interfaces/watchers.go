package interfaces

import (
	"context"
	"net/http"
	"time"
)

// WatcherEvent is one detected change to publish on the event bus
type WatcherEvent struct {
	Trigger Trigger
	Data    map[string]interface{}
}

// Watcher periodically polls an external source for change. Check cycles
// are serial per watcher; at most one is in flight at a time.
type Watcher interface {
	Name() string
	Interval() time.Duration
	Init(ctx context.Context) error
	Check(ctx context.Context) ([]WatcherEvent, error)
}

// WebhookRouter registers path handlers on the webhook server. Paths are
// normalized so "x", "/x" and "webhook/x" all become "/webhooks/x".
type WebhookRouter interface {
	Register(path string, handler http.Handler)
}

// RouteRegistrar is implemented by watchers that also expose webhook routes.
// The watcher manager calls it before the webhook listener starts.
type RouteRegistrar interface {
	RegisterRoutes(router WebhookRouter)
}
