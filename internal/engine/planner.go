package engine

import (
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/models"
)

// PlanKinds derives the relation kinds to request for one target from the
// job and the relation preferences. Known flags suppress kinds that are
// already applied; unknown flags count as not applied.
func PlanKinds(job *models.Job, target models.Target, prefs common.RelationConfig) models.Kinds {
	switch job.SourceKind {
	case models.SourceSingle:
		return models.KindsOf(job.TargetSpec.Kind)

	case models.SourceUndoAll:
		return models.Kinds{
			User:  target.Flags.Has(models.KindUser),
			Title: target.Flags.Has(models.KindTitle),
			Mute:  target.Flags.Has(models.KindMute),
		}

	case models.SourceList:
		if job.Mode == models.ModeRevoke {
			return models.Kinds{User: true, Title: true, Mute: true}
		}
		return preferredKinds(prefs)
	}

	kinds := preferredKinds(prefs)
	if job.Mode == models.ModeApply {
		kinds.User = kinds.User && !target.Flags.Has(models.KindUser)
		kinds.Title = kinds.Title && !target.Flags.Has(models.KindTitle)
		kinds.Mute = kinds.Mute && !target.Flags.Has(models.KindMute)
	}
	return kinds
}

// preferredKinds muting replaces blocking; title bans are opt-in
func preferredKinds(prefs common.RelationConfig) models.Kinds {
	return models.Kinds{
		User:  !prefs.EnableMute,
		Title: prefs.EnableTitleBan,
		Mute:  prefs.EnableMute,
	}
}
