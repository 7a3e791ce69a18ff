package crawl

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/rs/zerolog/log"
)

// ClaimSearcher builds claim_search requests and fetches their pages
type ClaimSearcher interface {
	PageSource
	ClaimSearchRequest(pageSize int, filters map[string]any) odysee.PageRequest
}

// ChannelResolver maps channel claim ids to their display titles with one batched,
// paginated claim_search per call.
type ChannelResolver struct {
	searcher ClaimSearcher
	pageSize int
	cache    *lru.Cache[string, string] // nil when disabled
}

// NewChannelResolver creates a resolver. cacheSize > 0 keeps up to that many resolved
// titles across calls; 0 disables caching.
func NewChannelResolver(searcher ClaimSearcher, pageSize, cacheSize int) (*ChannelResolver, error) {
	r := &ChannelResolver{searcher: searcher, pageSize: pageSize}
	if cacheSize < 0 {
		return nil, fmt.Errorf("channel cache size cannot be negative")
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create channel cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Resolve returns channel id → title for the ids that have a titled channel claim.
// Ids with no claim (deleted channels) or no title are omitted; callers fall back to the
// channel name they already have.
func (r *ChannelResolver) Resolve(ctx context.Context, channelIDs []string) (map[string]string, error) {
	titles := make(map[string]string, len(channelIDs))

	seen := make(map[string]struct{}, len(channelIDs))
	missing := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if r.cache != nil {
			if title, ok := r.cache.Get(id); ok {
				titles[id] = title
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return titles, nil
	}

	req := r.searcher.ClaimSearchRequest(r.pageSize, map[string]any{"claim_ids": missing})
	channels, err := CollectAs[odysee.ChannelLookup](ctx, NewPager(r.searcher, req))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %d channel titles: %w", len(missing), err)
	}

	for _, ch := range channels {
		if ch.Value.Title == "" {
			continue
		}
		titles[ch.ClaimID] = ch.Value.Title
		if r.cache != nil {
			r.cache.Add(ch.ClaimID, ch.Value.Title)
		}
	}

	log.Debug().
		Int("requested", len(missing)).
		Int("resolved", len(titles)).
		Msg("Resolved channel titles")

	return titles, nil
}
