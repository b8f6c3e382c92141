package scraping

import (
	"context"
	"iter"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/models"
)

// Source resolves the targets of a job from its origin
type Source struct {
	client *Client
	lists  interfaces.ListStorage
	config common.ScrapingConfig
	logger arbor.ILogger
}

// NewSource creates a target source
func NewSource(client *Client, lists interfaces.ListStorage, config common.ScrapingConfig, logger arbor.ILogger) *Source {
	return &Source{
		client: client,
		lists:  lists,
		config: config,
		logger: logger,
	}
}

// Resolve returns the job's targets, de-duplicated by name
func (s *Source) Resolve(ctx context.Context, job *models.Job) iter.Seq[models.Target] {
	spec := job.TargetSpec

	switch job.SourceKind {
	case models.SourceSingle:
		return s.single(spec)

	case models.SourceList:
		return s.list(ctx)

	case models.SourceFavoriters:
		return uniqueByName(paginate(ctx, s.logger, "favoriters", 2, func(ctx context.Context, pageIndex int) (models.Page, error) {
			return s.client.FavoritersPage(ctx, spec.PostID, pageIndex, s.config.EnableNoviceFavoriters)
		}))

	case models.SourceFollowers:
		return uniqueByName(paginate(ctx, s.logger, "followers", s.config.MaxPages, func(ctx context.Context, pageIndex int) (models.Page, error) {
			return s.client.FollowersPage(ctx, spec.AuthorName, pageIndex)
		}))

	case models.SourceTitleAuthors:
		window := spec.Window
		if window == "" {
			window = models.WindowAll
		}
		return uniqueByName(paginate(ctx, s.logger, "title_authors", s.config.MaxPages, func(ctx context.Context, pageIndex int) (models.Page, error) {
			return s.client.TitleAuthorsPage(ctx, spec.TitleName, spec.TitleID, window, pageIndex)
		}))

	case models.SourceUndoAll:
		return s.undoAll(ctx)
	}

	s.logger.Warn().Str("source_kind", string(job.SourceKind)).Msg("Unknown source kind, no targets")
	return func(func(models.Target) bool) {}
}

func (s *Source) single(spec models.TargetSpec) iter.Seq[models.Target] {
	return func(yield func(models.Target) bool) {
		name := models.NormalizeName(spec.AuthorName)
		if name == "" {
			name = spec.AuthorID
		}
		yield(models.Target{ID: strings.TrimSpace(spec.AuthorID), DisplayName: name})
	}
}

func (s *Source) list(ctx context.Context) iter.Seq[models.Target] {
	return func(yield func(models.Target) bool) {
		names, err := s.lists.GetList(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read name list")
			return
		}
		for _, name := range CleanList(names) {
			if !yield(models.Target{DisplayName: name}) {
				return
			}
		}
	}
}

func (s *Source) undoAll(ctx context.Context) iter.Seq[models.Target] {
	return func(yield func(models.Target) bool) {
		targets, err := s.roster(ctx, true)
		if err != nil {
			s.logger.Info().Err(err).Int("read", len(targets)).Msg("Roster read cancelled")
			return
		}
		for _, target := range targets {
			if ctx.Err() != nil {
				return
			}
			if !yield(target) {
				return
			}
		}
	}
}

// CleanList trims names, normalises them and drops blanks and duplicates,
// keeping first-seen order.
func CleanList(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for _, raw := range names {
		name := models.NormalizeName(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	return cleaned
}
