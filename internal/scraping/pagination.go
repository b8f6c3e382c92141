package scraping

import (
	"context"
	"errors"
	"iter"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/models"
)

// PageFetcher fetches one 1-based page of a paginated listing
type PageFetcher func(ctx context.Context, pageIndex int) (models.Page, error)

// pageEnd classifies a page for the walk loop. Fetch errors become PageFailed,
// not-found becomes PageNotFound, a page with no rows becomes PageEmpty.
func pageEnd(page models.Page, err error) models.PageEnd {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.PageNotFound
	case err != nil:
		return models.PageFailed
	case page.End == models.PageMore && len(page.Targets) == 0:
		return models.PageEmpty
	}
	return page.End
}

// walkPages fetches pages from index 1 until a page ends the sequence, visit
// returns false, maxPages is reached or ctx is cancelled. The page index
// advances on every call regardless of outcome.
func walkPages(ctx context.Context, source string, maxPages int, fetch PageFetcher, visit func(models.Page) bool) (models.PageEnd, error) {
	for pageIndex := 1; maxPages <= 0 || pageIndex <= maxPages; pageIndex++ {
		if ctx.Err() != nil {
			return models.PageLast, nil
		}

		page, err := fetch(ctx, pageIndex)
		end := pageEnd(page, err)

		if end == models.PageFailed {
			return end, &models.ResolutionError{Source: source, Page: pageIndex, Err: err}
		}
		if !visit(page) {
			return models.PageLast, nil
		}
		if end != models.PageMore {
			return end, nil
		}
	}
	return models.PageLast, nil
}

// paginate exposes a paginated listing as a lazy target sequence. Resolution
// errors end the sequence and are logged; targets already yielded stand.
func paginate(ctx context.Context, logger arbor.ILogger, source string, maxPages int, fetch PageFetcher) iter.Seq[models.Target] {
	return func(yield func(models.Target) bool) {
		stopped := false
		end, err := walkPages(ctx, source, maxPages, fetch, func(page models.Page) bool {
			for _, target := range page.Targets {
				if !yield(target) {
					stopped = true
					return false
				}
			}
			return true
		})

		switch {
		case stopped:
		case err != nil:
			logger.Warn().Err(err).Str("source", source).Msg("Page fetch failed, ending sequence")
		case end == models.PageNotFound:
			logger.Debug().Str("source", source).Msg("Listing ended with not found")
		}
	}
}

// collectPages reads a whole listing. Unlike paginate it reports a failed
// page, returning the targets read before it alongside the error.
func collectPages(ctx context.Context, source string, maxPages int, fetch PageFetcher) ([]models.Target, error) {
	var targets []models.Target
	_, err := walkPages(ctx, source, maxPages, fetch, func(page models.Page) bool {
		targets = append(targets, page.Targets...)
		return true
	})
	return targets, err
}

// uniqueByName drops targets whose name was already yielded
func uniqueByName(seq iter.Seq[models.Target]) iter.Seq[models.Target] {
	return func(yield func(models.Target) bool) {
		seen := make(map[string]struct{})
		for target := range seq {
			if target.DisplayName == "" {
				continue
			}
			if _, ok := seen[target.DisplayName]; ok {
				continue
			}
			seen[target.DisplayName] = struct{}{}
			if !yield(target) {
				return
			}
		}
	}
}
