package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NotificationStorage implements interfaces.NotificationStorage on Badger
// as an append-only queue.
type NotificationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNotificationStorage creates a new NotificationStorage instance
func NewNotificationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NotificationStorage {
	return &NotificationStorage{db: db, logger: logger}
}

func (s *NotificationStorage) SaveNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		return fmt.Errorf("notification ID is required")
	}
	if err := s.db.Store().Insert(n.ID, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (s *NotificationStorage) ListNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Notification
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := make([]*models.Notification, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}
