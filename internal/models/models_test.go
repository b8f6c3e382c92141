package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []ActionOutcome
		want     ActionOutcome
	}{
		{name: "no kinds requested", want: Success()},
		{name: "all success", outcomes: []ActionOutcome{Success(), Success()}, want: Success()},
		{name: "failure wins over success", outcomes: []ActionOutcome{Success(), Failed()}, want: Failed()},
		{name: "throttle wins over failure", outcomes: []ActionOutcome{Failed(), Throttled(0)}, want: Throttled(0)},
		{name: "longest retry hint kept", outcomes: []ActionOutcome{Throttled(5), Success(), Throttled(30)}, want: Throttled(30)},
		{name: "interruption wins over everything", outcomes: []ActionOutcome{Throttled(5), Interrupted(), Failed()}, want: Interrupted()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateOutcomes(tt.outcomes...))
		})
	}
}

func TestOutcomeFromError(t *testing.T) {
	assert.Equal(t, Success(), OutcomeFromError(nil))
	assert.Equal(t, Throttled(12), OutcomeFromError(&ThrottledError{Kind: KindUser, RetryAfter: 12}))
	assert.Equal(t, Failed(), OutcomeFromError(&TerminalActionError{Kind: KindMute, Status: 500}))
}

func TestJobCounters_Invariant(t *testing.T) {
	var c JobCounters
	c.Plan(3)
	assert.True(t, c.Valid())

	c.Record(true)
	c.Record(false)
	assert.Equal(t, JobCounters{Planned: 3, Performed: 2, Successful: 1}, c)
	assert.True(t, c.Valid())

	c.Plan(1)
	assert.Equal(t, 3, c.Planned, "planned never shrinks")

	// A streaming source may perform beyond the initial plan
	c.Record(true)
	c.Record(true)
	assert.Equal(t, 4, c.Planned)
	assert.True(t, c.Valid())

	c.Reset()
	assert.Equal(t, JobCounters{}, c)
	assert.False(t, JobCounters{Planned: 1, Performed: 1, Successful: 2}.Valid())
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  SourceKind
		mode    Mode
		spec    TargetSpec
		wantErr bool
	}{
		{name: "single", source: SourceSingle, mode: ModeApply, spec: TargetSpec{AuthorID: "1", Kind: KindMute}},
		{name: "single without kind", source: SourceSingle, mode: ModeApply, spec: TargetSpec{AuthorID: "1"}, wantErr: true},
		{name: "single without author", source: SourceSingle, mode: ModeApply, spec: TargetSpec{Kind: KindUser}, wantErr: true},
		{name: "list", source: SourceList, mode: ModeRevoke},
		{name: "favoriters", source: SourceFavoriters, mode: ModeApply, spec: TargetSpec{PostID: "9"}},
		{name: "favoriters without post", source: SourceFavoriters, mode: ModeApply, wantErr: true},
		{name: "followers", source: SourceFollowers, mode: ModeApply, spec: TargetSpec{AuthorName: "a"}},
		{name: "title authors", source: SourceTitleAuthors, mode: ModeApply, spec: TargetSpec{TitleID: "1", TitleName: "t", Window: WindowLast24H}},
		{name: "title authors bad window", source: SourceTitleAuthors, mode: ModeApply, spec: TargetSpec{TitleID: "1", TitleName: "t", Window: "WEEK"}, wantErr: true},
		{name: "unknown source", source: "ALL", mode: ModeApply, wantErr: true},
		{name: "unknown mode", source: SourceList, mode: "TOGGLE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewJob(tt.source, tt.mode, tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, job.ID)
			assert.Equal(t, job.ID, job.Info().ID)
		})
	}
}

func TestNewJob_UndoAllIsRevoke(t *testing.T) {
	job, err := NewJob(SourceUndoAll, ModeApply, TargetSpec{})
	require.NoError(t, err)
	assert.Equal(t, ModeRevoke, job.Mode)
}

func TestRelationFlags(t *testing.T) {
	var unknown *RelationFlags
	assert.False(t, unknown.Has(KindUser))
	assert.Nil(t, unknown.Clone())

	flags := KnownFlags()
	assert.False(t, flags.Has(KindMute))

	flags.Set(KindMute)
	clone := flags.Clone()
	clone.Set(KindUser)

	assert.True(t, flags.Has(KindMute))
	assert.False(t, flags.Has(KindUser), "clone is independent")
	assert.True(t, clone.Has(KindUser))
}

func TestTargetResolved(t *testing.T) {
	assert.False(t, Target{ID: ""}.Resolved())
	assert.False(t, Target{ID: "0"}.Resolved())
	assert.False(t, Target{ID: " 0 "}.Resolved())
	assert.True(t, Target{ID: "42"}.Resolved())
	assert.Equal(t, "ali-veli", NormalizeName(" ali veli "))
	assert.Equal(t, "u", KindMute.QueryCode())
}

func TestKinds(t *testing.T) {
	kinds := KindsOf(KindTitle)
	assert.True(t, kinds.Wants(KindTitle))
	assert.False(t, kinds.Wants(KindUser))
	assert.Equal(t, []RelationKind{KindTitle}, kinds.List())

	all := Kinds{User: true, Title: true, Mute: true}
	assert.Equal(t, AllKinds, all.List())
	assert.True(t, Kinds{}.Empty())
	assert.False(t, all.Empty())
}
