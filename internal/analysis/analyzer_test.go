package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/models"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Following(ctx context.Context, name string) (map[string]models.Target, error) {
	args := m.Called(name)
	following, _ := args.Get(0).(map[string]models.Target)
	return following, args.Error(1)
}

func (m *mockDirectory) Roster(ctx context.Context) (map[string]models.Target, error) {
	args := m.Called()
	roster, _ := args.Get(0).(map[string]models.Target)
	return roster, args.Error(1)
}

func enabledConfig() common.AnalysisConfig {
	return common.AnalysisConfig{Enabled: true, ProtectFollowed: true, OnlyRequiredActions: true}
}

func targetsNamed(names ...string) []models.Target {
	targets := make([]models.Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, models.Target{DisplayName: name})
	}
	return targets
}

func TestAnalyzer_Applies(t *testing.T) {
	analyzer := NewAnalyzer(&mockDirectory{}, enabledConfig(), arbor.NewNoOpLogger())

	tests := []struct {
		source   models.SourceKind
		mode     models.Mode
		expected bool
	}{
		{models.SourceFavoriters, models.ModeApply, true},
		{models.SourceFollowers, models.ModeApply, true},
		{models.SourceTitleAuthors, models.ModeApply, true},
		{models.SourceFollowers, models.ModeRevoke, false},
		{models.SourceList, models.ModeApply, false},
		{models.SourceSingle, models.ModeApply, false},
		{models.SourceUndoAll, models.ModeRevoke, false},
	}

	for _, tt := range tests {
		job := &models.Job{SourceKind: tt.source, Mode: tt.mode}
		assert.Equal(t, tt.expected, analyzer.Applies(job), "%s/%s", tt.source, tt.mode)
	}

	disabled := NewAnalyzer(&mockDirectory{}, common.AnalysisConfig{ProtectFollowed: true}, arbor.NewNoOpLogger())
	assert.False(t, disabled.Applies(&models.Job{SourceKind: models.SourceFollowers, Mode: models.ModeApply}))
}

func TestAnalyzer_ProtectFollowed(t *testing.T) {
	directory := &mockDirectory{}
	directory.On("Following", "me").Return(map[string]models.Target{"bob": {DisplayName: "bob"}}, nil)

	cfg := common.AnalysisConfig{Enabled: true, ProtectFollowed: true}
	analyzer := NewAnalyzer(directory, cfg, arbor.NewNoOpLogger())

	input := targetsNamed("alice", "bob", "carol")
	result := analyzer.Analyze(context.Background(), &models.Client{Name: "me", ID: "1"}, input)

	assert.Equal(t, targetsNamed("alice", "carol"), result)
	assert.Equal(t, targetsNamed("alice", "bob", "carol"), input, "input is not modified")
	directory.AssertNotCalled(t, "Roster")
}

func TestAnalyzer_OnlyRequiredCopiesFlags(t *testing.T) {
	muted := models.KnownFlags()
	muted.Set(models.KindMute)

	directory := &mockDirectory{}
	directory.On("Roster").Return(map[string]models.Target{"alice": {DisplayName: "alice", Flags: muted}}, nil)

	cfg := common.AnalysisConfig{Enabled: true, OnlyRequiredActions: true}
	analyzer := NewAnalyzer(directory, cfg, arbor.NewNoOpLogger())

	result := analyzer.Analyze(context.Background(), nil, targetsNamed("alice", "bob"))

	assert.Len(t, result, 2)
	assert.True(t, result[0].Flags.Has(models.KindMute))
	assert.False(t, result[0].Flags.Has(models.KindUser))
	assert.NotSame(t, muted, result[0].Flags, "flags are copied")
	assert.Nil(t, result[1].Flags, "absent targets keep prior flags")
}

func TestAnalyzer_FailuresDegradeToNoOp(t *testing.T) {
	directory := &mockDirectory{}
	directory.On("Following", "me").Return(nil, errors.New("boom"))
	directory.On("Roster").Return(nil, errors.New("boom"))

	analyzer := NewAnalyzer(directory, enabledConfig(), arbor.NewNoOpLogger())
	result := analyzer.Analyze(context.Background(), &models.Client{Name: "me"}, targetsNamed("alice", "bob"))

	assert.Equal(t, targetsNamed("alice", "bob"), result)
	directory.AssertExpectations(t)
}

func TestAnalyzer_UnknownCallerSkipsProtectFollowed(t *testing.T) {
	directory := &mockDirectory{}
	directory.On("Roster").Return(map[string]models.Target{}, nil)

	analyzer := NewAnalyzer(directory, enabledConfig(), arbor.NewNoOpLogger())
	result := analyzer.Analyze(context.Background(), nil, targetsNamed("alice"))

	assert.Equal(t, targetsNamed("alice"), result)
	directory.AssertNotCalled(t, "Following", mock.Anything)
}
