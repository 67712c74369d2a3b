package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WatcherStateStorage implements interfaces.WatcherStateStorage on Badger.
// Checkpoints are idempotent upserts keyed by the external identifier.
type WatcherStateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWatcherStateStorage creates a new WatcherStateStorage instance
func NewWatcherStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WatcherStateStorage {
	return &WatcherStateStorage{db: db, logger: logger}
}

func (s *WatcherStateStorage) SaveWatcherState(ctx context.Context, state *models.WatcherState) error {
	if state.Key == "" {
		return fmt.Errorf("watcher state key is required")
	}
	if err := s.db.Store().Upsert(state.Key, state); err != nil {
		return fmt.Errorf("failed to save watcher state: %w", err)
	}
	return nil
}

func (s *WatcherStateStorage) GetWatcherState(ctx context.Context, key string) (*models.WatcherState, error) {
	var state models.WatcherState
	if err := s.db.Store().Get(key, &state); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get watcher state: %w", err)
	}
	return &state, nil
}
