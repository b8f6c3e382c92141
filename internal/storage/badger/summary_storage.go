package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SummaryStorage implements the SummaryStorage interface for Badger
type SummaryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSummaryStorage creates a new SummaryStorage instance
func NewSummaryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SummaryStorage {
	return &SummaryStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSummary inserts or replaces a summary
func (s *SummaryStorage) SaveSummary(ctx context.Context, summary *models.Summary) error {
	if summary.ID == "" {
		return fmt.Errorf("summary ID is required")
	}
	if err := s.db.Store().Upsert(summary.ID, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummary returns one summary by id
func (s *SummaryStorage) GetSummary(ctx context.Context, id string) (*models.Summary, error) {
	var summary models.Summary
	err := s.db.Store().Get(id, &summary)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("summary %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &summary, nil
}

// ListSummaries returns the most recently finished summaries first.
// limit <= 0 returns all.
func (s *SummaryStorage) ListSummaries(ctx context.Context, limit int) ([]*models.Summary, error) {
	query := badgerhold.Where("Kind").Ne("").SortBy("FinishedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var summaries []models.Summary
	if err := s.db.Store().Find(&summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	result := make([]*models.Summary, len(summaries))
	for i := range summaries {
		result[i] = &summaries[i]
	}
	return result, nil
}
