package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// nameListKey is the single record holding the LIST-origin names
const nameListKey = "name_list"

// nameList is the stored form of the caller-maintained name list
type nameList struct {
	Key       string `badgerhold:"key"`
	Names     []string
	UpdatedAt time.Time
}

// ListStorage implements the ListStorage interface for Badger
type ListStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewListStorage creates a new ListStorage instance
func NewListStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ListStorage {
	return &ListStorage{
		db:     db,
		logger: logger,
	}
}

// GetList returns the stored names, or an empty list when none were saved
func (s *ListStorage) GetList(ctx context.Context) ([]string, error) {
	var record nameList
	err := s.db.Store().Get(nameListKey, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get name list: %w", err)
	}
	return record.Names, nil
}

// SetList replaces the stored names
func (s *ListStorage) SetList(ctx context.Context, names []string) error {
	record := nameList{
		Key:       nameListKey,
		Names:     append([]string(nil), names...),
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(nameListKey, &record); err != nil {
		return fmt.Errorf("failed to save name list: %w", err)
	}

	s.logger.Debug().Int("count", len(names)).Msg("Name list saved")
	return nil
}

// ClearList removes the stored names
func (s *ListStorage) ClearList(ctx context.Context) error {
	err := s.db.Store().Delete(nameListKey, &nameList{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to clear name list: %w", err)
	}
	return nil
}
