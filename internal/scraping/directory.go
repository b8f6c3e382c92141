package scraping

import (
	"context"
	"fmt"

	"github.com/ternarybob/engel/internal/models"
)

// Following returns the accounts name follows, keyed by name
func (s *Source) Following(ctx context.Context, name string) (map[string]models.Target, error) {
	targets, err := collectPages(ctx, "following", s.config.MaxPages, func(ctx context.Context, pageIndex int) (models.Page, error) {
		return s.client.FollowingPage(ctx, name, pageIndex)
	})
	if err != nil {
		return nil, err
	}

	following := make(map[string]models.Target, len(targets))
	for _, target := range targets {
		following[target.DisplayName] = target
	}
	return following, nil
}

// Roster returns the caller's blocked, title-blocked and muted accounts
// merged by name, each with all three flags known. Any failed page fails the
// whole snapshot, since partial flags would claim relations are absent.
func (s *Source) Roster(ctx context.Context) (map[string]models.Target, error) {
	targets, err := s.roster(ctx, false)
	if err != nil {
		return nil, err
	}

	roster := make(map[string]models.Target, len(targets))
	for _, target := range targets {
		roster[target.DisplayName] = target
	}
	return roster, nil
}

// roster merges the three rosters in first-seen order. With partial set a
// failed page ends only its own roster: the rows read before it are kept and
// the next roster is still read.
func (s *Source) roster(ctx context.Context, partial bool) ([]models.Target, error) {
	var merged []models.Target
	index := make(map[string]int)

	for _, kind := range models.AllKinds {
		if err := ctx.Err(); err != nil {
			return merged, err
		}

		targets, err := collectPages(ctx, "roster_"+string(kind), s.config.MaxPages, func(ctx context.Context, pageIndex int) (models.Page, error) {
			return s.client.RosterPage(ctx, kind, pageIndex)
		})
		if err != nil {
			if !partial {
				return nil, fmt.Errorf("failed to read %s roster: %w", kind, err)
			}
			s.logger.Warn().
				Err(err).
				Str("kind", string(kind)).
				Int("kept", len(targets)).
				Msg("Roster page failed, keeping rows read so far")
		}

		for _, target := range targets {
			i, ok := index[target.DisplayName]
			if !ok {
				i = len(merged)
				index[target.DisplayName] = i
				merged = append(merged, models.Target{
					ID:          target.ID,
					DisplayName: target.DisplayName,
					Flags:       models.KnownFlags(),
				})
			}
			merged[i].Flags.Set(kind)
		}
	}

	return merged, nil
}
