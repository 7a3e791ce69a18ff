package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/rs/zerolog/log"
)

// PageSource fetches a single page of a paginated endpoint
type PageSource interface {
	FetchPage(ctx context.Context, req odysee.PageRequest, page int) (*odysee.Page, error)
}

// ErrStop can be returned from a ForEach callback to end paging early without an error.
var ErrStop = errors.New("stop paging")

// Pager walks every page of a paginated endpoint: page 1 is fetched first and its
// total_pages bounds the session. A Pager is single-use.
type Pager struct {
	source PageSource
	req    odysee.PageRequest
	used   bool
}

// NewPager creates a pager for the given request template
func NewPager(source PageSource, req odysee.PageRequest) *Pager {
	return &Pager{source: source, req: req}
}

// ForEach fetches the pages in order and hands each one to fn. Any fetch error stops
// paging and is returned; so is any error returned by fn, except ErrStop.
func (p *Pager) ForEach(ctx context.Context, fn func(*odysee.Page) error) error {
	if p.used {
		return fmt.Errorf("pager for %s already consumed", p.req.Method)
	}
	p.used = true

	totalPages := 1
	for index := 1; index <= totalPages; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := p.source.FetchPage(ctx, p.req, index)
		if err != nil {
			log.Error().Err(err).Str("method", p.req.Method).Int("page", index).Msg("Failed to fetch page")
			return fmt.Errorf("failed to fetch %s page %d: %w", p.req.Method, index, err)
		}

		// total_pages is only read from the first page
		if index == 1 {
			totalPages = page.TotalPages
			log.Debug().Str("method", p.req.Method).Int("total_pages", totalPages).Msg("Starting paging session")
		}

		if err := fn(page); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Collect accumulates the items of every page.
func (p *Pager) Collect(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	err := p.ForEach(ctx, func(page *odysee.Page) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CollectAs accumulates the items of every page decoded as T.
func CollectAs[T any](ctx context.Context, p *Pager) ([]T, error) {
	var out []T
	err := p.ForEach(ctx, func(page *odysee.Page) error {
		for i, raw := range page.Items {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("failed to decode %s page %d item %d: %w", p.req.Method, page.Index, i, err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
