package notify

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// StoreNotifier appends messages to the persistent notification queue so
// they survive restarts and can be replayed by clients.
type StoreNotifier struct {
	storage interfaces.NotificationStorage
	logger  arbor.ILogger
}

// NewStoreNotifier creates a notifier backed by notification storage
func NewStoreNotifier(storage interfaces.NotificationStorage, logger arbor.ILogger) *StoreNotifier {
	return &StoreNotifier{
		storage: storage,
		logger:  logger,
	}
}

// SendMessage persists the message as a notification row
func (s *StoreNotifier) SendMessage(ctx context.Context, text string) error {
	n := models.NewNotification(text)
	if err := s.storage.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	s.logger.Debug().Str("notification_id", n.ID).Msg("Notification persisted")
	return nil
}

var _ interfaces.Notifier = (*StoreNotifier)(nil)
