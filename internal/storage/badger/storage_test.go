package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	config := &common.BadgerConfig{Path: t.TempDir()}
	manager, err := NewManager(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestListStorage_RoundTrip(t *testing.T) {
	lists := newTestManager(t).ListStorage()
	ctx := context.Background()

	names, err := lists.GetList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, lists.SetList(ctx, []string{"alice", "bob"}))
	names, err = lists.GetList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)

	require.NoError(t, lists.SetList(ctx, []string{"carol"}))
	names, err = lists.GetList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names)

	require.NoError(t, lists.ClearList(ctx))
	require.NoError(t, lists.ClearList(ctx), "clearing twice is fine")
	names, err = lists.GetList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSummaryStorage_SaveGetList(t *testing.T) {
	summaries := newTestManager(t).SummaryStorage()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, summaries.SaveSummary(ctx, &models.Summary{
			ID:         id,
			Kind:       models.SummaryKindJob,
			SourceKind: models.SourceList,
			Mode:       models.ModeApply,
			Status:     models.StatusCompleted,
			Counters:   models.JobCounters{Planned: 2, Performed: 2, Successful: i},
			Targets:    []models.TargetRef{{ID: "5", Name: "bob"}},
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	got, err := summaries.GetSummary(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Counters.Successful)
	assert.Equal(t, []models.TargetRef{{ID: "5", Name: "bob"}}, got.Targets)

	_, err = summaries.GetSummary(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	recent, err := summaries.ListSummaries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].ID)
	assert.Equal(t, "second", recent[1].ID)

	all, err := summaries.ListSummaries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Error(t, summaries.SaveSummary(ctx, &models.Summary{}))
}

func TestNewBadgerDB_ResetOnStartup(t *testing.T) {
	path := t.TempDir()
	ctx := context.Background()

	manager, err := NewManager(arbor.NewNoOpLogger(), &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, manager.ListStorage().SetList(ctx, []string{"alice"}))
	require.NoError(t, manager.Close())

	manager, err = NewManager(arbor.NewNoOpLogger(), &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	defer manager.Close()

	names, err := manager.ListStorage().GetList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
