package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EventLogStorage implements interfaces.EventLogStorage on Badger.
// Rows are append-only; there is no update or delete path.
type EventLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEventLogStorage creates a new EventLogStorage instance
func NewEventLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EventLogStorage {
	return &EventLogStorage{db: db, logger: logger}
}

func (s *EventLogStorage) SaveEventLog(ctx context.Context, log *models.EventLog) error {
	if log.ID == "" {
		return fmt.Errorf("event log ID is required")
	}
	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to save event log: %w", err)
	}
	return nil
}

func (s *EventLogStorage) ListEventLogs(ctx context.Context, trigger string, limit int) ([]*models.EventLog, error) {
	query := badgerhold.Where("ID").Ne("")
	if trigger != "" {
		query = query.And("Trigger").Eq(trigger)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	query = query.SortBy("CreatedAt").Reverse()

	var logs []models.EventLog
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list event logs: %w", err)
	}

	result := make([]*models.EventLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
