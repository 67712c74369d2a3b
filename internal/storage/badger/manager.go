package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/interfaces"
)

// Manager aggregates the per-aggregate storages over one Badger connection
type Manager struct {
	db               *BadgerDB
	jobs             interfaces.JobStorage
	eventLogs        interfaces.EventLogStorage
	scheduledActions interfaces.ScheduledActionStorage
	watcherStates    interfaces.WatcherStateStorage
	notifications    interfaces.NotificationStorage
}

// NewManager opens the database and wires every storage surface
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:               db,
		jobs:             NewJobStorage(db, logger),
		eventLogs:        NewEventLogStorage(db, logger),
		scheduledActions: NewScheduledActionStorage(db, logger),
		watcherStates:    NewWatcherStateStorage(db, logger),
		notifications:    NewNotificationStorage(db, logger),
	}, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage                         { return m.jobs }
func (m *Manager) EventLogStorage() interfaces.EventLogStorage               { return m.eventLogs }
func (m *Manager) ScheduledActionStorage() interfaces.ScheduledActionStorage { return m.scheduledActions }
func (m *Manager) WatcherStateStorage() interfaces.WatcherStateStorage       { return m.watcherStates }
func (m *Manager) NotificationStorage() interfaces.NotificationStorage       { return m.notifications }

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}

var _ interfaces.StorageManager = (*Manager)(nil)
