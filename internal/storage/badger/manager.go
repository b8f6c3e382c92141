package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	lists     interfaces.ListStorage
	summaries interfaces.SummaryStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		lists:     NewListStorage(db, logger),
		summaries: NewSummaryStorage(db, logger),
		logger:    logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// ListStorage returns the name list storage
func (m *Manager) ListStorage() interfaces.ListStorage {
	return m.lists
}

// SummaryStorage returns the summary storage
func (m *Manager) SummaryStorage() interfaces.SummaryStorage {
	return m.summaries
}

// Close closes the database
func (m *Manager) Close() error {
	return m.db.Close()
}
