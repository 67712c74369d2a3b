package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ScheduledActionStorage implements interfaces.ScheduledActionStorage on Badger
type ScheduledActionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScheduledActionStorage creates a new ScheduledActionStorage instance
func NewScheduledActionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScheduledActionStorage {
	return &ScheduledActionStorage{db: db, logger: logger}
}

func (s *ScheduledActionStorage) SaveScheduledAction(ctx context.Context, action *models.ScheduledAction) error {
	if action.Name == "" {
		return fmt.Errorf("scheduled action name is required")
	}
	if err := s.db.Store().Upsert(action.Name, action); err != nil {
		return fmt.Errorf("failed to save scheduled action: %w", err)
	}
	return nil
}

func (s *ScheduledActionStorage) GetScheduledAction(ctx context.Context, name string) (*models.ScheduledAction, error) {
	var action models.ScheduledAction
	if err := s.db.Store().Get(name, &action); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("scheduled action not found: %s", name)
		}
		return nil, fmt.Errorf("failed to get scheduled action: %w", err)
	}
	return &action, nil
}

func (s *ScheduledActionStorage) ListScheduledActions(ctx context.Context) ([]*models.ScheduledAction, error) {
	var actions []models.ScheduledAction
	if err := s.db.Store().Find(&actions, badgerhold.Where("Name").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list scheduled actions: %w", err)
	}

	result := make([]*models.ScheduledAction, len(actions))
	for i := range actions {
		result[i] = &actions[i]
	}
	return result, nil
}
