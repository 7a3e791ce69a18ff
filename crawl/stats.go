package crawl

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StatsSource provides the per-claim counters
type StatsSource interface {
	ViewCount(ctx context.Context, authToken, claimID string) (int64, error)
	Reactions(ctx context.Context, authToken, claimID string) (odysee.Reactions, error)
	CommentCount(ctx context.Context, claimID string) (int64, error)
}

// StatFetcher gathers the counters of one video with up to three concurrent calls.
type StatFetcher struct {
	source StatsSource
}

// NewStatFetcher creates a stat fetcher
func NewStatFetcher(source StatsSource) *StatFetcher {
	return &StatFetcher{source: source}
}

// Fetch always fetches the comment count; views and reactions need a session token and are
// skipped when authToken is empty. Every launched call runs to completion before Fetch
// returns, and any failure fails the whole bundle.
func (f *StatFetcher) Fetch(ctx context.Context, claimID, authToken string) (odysee.VideoStatBundle, error) {
	var (
		eg        errgroup.Group
		views     int64
		reactions odysee.Reactions
		comments  int64
	)

	haveAuth := authToken != ""
	if haveAuth {
		eg.Go(func() error {
			v, err := f.source.ViewCount(ctx, authToken, claimID)
			if err != nil {
				return fmt.Errorf("view count: %w", err)
			}
			views = v
			return nil
		})

		eg.Go(func() error {
			r, err := f.source.Reactions(ctx, authToken, claimID)
			if err != nil {
				return fmt.Errorf("reactions: %w", err)
			}
			reactions = r
			return nil
		})
	}

	eg.Go(func() error {
		c, err := f.source.CommentCount(ctx, claimID)
		if err != nil {
			return fmt.Errorf("comment count: %w", err)
		}
		comments = c
		return nil
	})

	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Str("claim_id", claimID).Msg("Failed to fetch video stats")
		return odysee.VideoStatBundle{}, fmt.Errorf("failed to fetch stats for claim %s: %w", claimID, err)
	}

	bundle := odysee.VideoStatBundle{CommentCount: &comments}
	if haveAuth {
		bundle.ViewCount = &views
		bundle.LikeCount = &reactions.Likes
		bundle.DislikeCount = &reactions.Dislikes
	}
	return bundle, nil
}
