package analysis

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// Analyzer narrows a resolved target set using the caller's own relations.
// Both passes are best-effort: a pass whose reference roster cannot be
// fetched leaves the targets untouched.
type Analyzer struct {
	directory interfaces.RelationDirectory
	config    common.AnalysisConfig
	logger    arbor.ILogger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(directory interfaces.RelationDirectory, config common.AnalysisConfig, logger arbor.ILogger) *Analyzer {
	return &Analyzer{
		directory: directory,
		config:    config,
		logger:    logger,
	}
}

// Applies reports whether analysis runs for job. Only APPLY jobs over
// scraped audiences are analysed.
func (a *Analyzer) Applies(job *models.Job) bool {
	if !a.config.Enabled || job.Mode != models.ModeApply {
		return false
	}
	if !a.config.ProtectFollowed && !a.config.OnlyRequiredActions {
		return false
	}
	switch job.SourceKind {
	case models.SourceFavoriters, models.SourceFollowers, models.SourceTitleAuthors:
		return true
	}
	return false
}

// Analyze runs the enabled passes over targets and returns the narrowed set
// in the original order. Targets are copied, never mutated in place.
func (a *Analyzer) Analyze(ctx context.Context, caller *models.Client, targets []models.Target) []models.Target {
	result := make([]models.Target, len(targets))
	copy(result, targets)

	if a.config.ProtectFollowed {
		result = a.protectFollowed(ctx, caller, result)
	}
	if a.config.OnlyRequiredActions {
		result = a.onlyRequired(ctx, result)
	}
	return result
}

func (a *Analyzer) protectFollowed(ctx context.Context, caller *models.Client, targets []models.Target) []models.Target {
	if caller == nil || caller.Name == "" {
		a.logger.Warn().Msg("Caller unknown, skipping protect-followed pass")
		return targets
	}

	following, err := a.directory.Following(ctx, caller.Name)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to fetch following list, skipping protect-followed pass")
		return targets
	}

	kept := targets[:0]
	for _, target := range targets {
		if _, ok := following[target.DisplayName]; ok {
			a.logger.Debug().Str("name", target.DisplayName).Msg("Protected followed account")
			continue
		}
		kept = append(kept, target)
	}

	a.logger.Info().
		Int("removed", len(targets)-len(kept)).
		Int("remaining", len(kept)).
		Msg("Protect-followed pass complete")
	return kept
}

func (a *Analyzer) onlyRequired(ctx context.Context, targets []models.Target) []models.Target {
	roster, err := a.directory.Roster(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to fetch relation roster, skipping only-required pass")
		return targets
	}

	annotated := 0
	for i := range targets {
		known, ok := roster[targets[i].DisplayName]
		if !ok {
			continue
		}
		targets[i].Flags = known.Flags.Clone()
		annotated++
	}

	a.logger.Info().Int("annotated", annotated).Msg("Only-required pass complete")
	return targets
}
