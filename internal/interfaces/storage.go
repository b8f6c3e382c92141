package interfaces

import (
	"context"

	"github.com/ternarybob/engel/internal/models"
)

// ListStorage persists the caller-maintained name list used by LIST jobs
type ListStorage interface {
	GetList(ctx context.Context) ([]string, error)
	SetList(ctx context.Context, names []string) error
	ClearList(ctx context.Context) error
}

// SummaryStorage persists job and migration summaries
type SummaryStorage interface {
	SaveSummary(ctx context.Context, summary *models.Summary) error
	GetSummary(ctx context.Context, id string) (*models.Summary, error)
	ListSummaries(ctx context.Context, limit int) ([]*models.Summary, error)
}

// StorageManager owns the database and hands out the stores
type StorageManager interface {
	ListStorage() ListStorage
	SummaryStorage() SummaryStorage
	Close() error
}
