// Package standalone runs one comments or videos report for a channel, end to end.
package standalone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/researchaccelerator-hub/odysee-scraper/client"
	"github.com/researchaccelerator-hub/odysee-scraper/comments"
	"github.com/researchaccelerator-hub/odysee-scraper/common"
	"github.com/researchaccelerator-hub/odysee-scraper/crawl"
	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/researchaccelerator-hub/odysee-scraper/report"
	"github.com/rs/zerolog/log"
)

// Source is the part of the Odysee API a report run depends on.
type Source interface {
	crawl.ClaimSearcher
	crawl.StatsSource
	CommentListRequest(pageSize int, claimID string) odysee.PageRequest
	ResolveChannel(ctx context.Context, pageSize int, channelID string) (*odysee.Claim, error)
	AuthToken(ctx context.Context) (string, error)
	Thumbnail(ctx context.Context, thumbnailURL string) ([]byte, error)
}

// Runner produces one report. A Runner is used for a single Run.
type Runner struct {
	cfg    *common.ReportConfig
	kind   string
	source Source
	dates  *common.DateFormatter

	// Console receives the human-readable log stream; defaults to stderr
	Console io.Writer
}

// NewRunner creates a runner for kind (report.KindComments or report.KindVideos).
func NewRunner(cfg *common.ReportConfig, kind string, source Source) (*Runner, error) {
	if kind != report.KindComments && kind != report.KindVideos {
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	dates, err := cfg.Formatter()
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, kind: kind, source: source, dates: dates, Console: os.Stderr}, nil
}

// RunComments writes the comments report of the configured channel.
func RunComments(ctx context.Context, cfg *common.ReportConfig) error {
	return runWithClient(ctx, cfg, report.KindComments)
}

// RunVideos writes the videos report of the configured channel.
func RunVideos(ctx context.Context, cfg *common.ReportConfig) error {
	return runWithClient(ctx, cfg, report.KindVideos)
}

func runWithClient(ctx context.Context, cfg *common.ReportConfig, kind string) error {
	odyseeClient, err := client.NewOdyseeClient(cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("failed to create Odysee client: %w", err)
	}
	r, err := NewRunner(cfg, kind, odyseeClient)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// Run opens the report session, writes every claim of the channel and closes the session
// on every path. The first error stops the run and is returned.
func (r *Runner) Run(ctx context.Context) (err error) {
	session, err := report.OpenSession(r.cfg.OutputDir, r.kind, r.cfg.ChannelID, r.dates.File(r.dates.Now()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	restore, err := configureLogging(r.Console, session.LogWriter(), r.cfg.LogLevel, r.cfg.DateFormat.DB, r.dates)
	if err != nil {
		return err
	}
	defer restore()

	log.Info().Str("channel_id", r.cfg.ChannelID).Str("report", r.kind).Msg("Starting program")
	defer func() {
		if err != nil {
			log.Error().Err(err).Msg("Execution had errors")
		} else {
			log.Info().Msg("Execution was OK")
		}
		log.Info().Msg("Ending program")
	}()

	return r.write(ctx, session)
}

func (r *Runner) write(ctx context.Context, session *report.Session) error {
	channel, err := r.source.ResolveChannel(ctx, r.cfg.PageSize, r.cfg.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to resolve channel %s: %w", r.cfg.ChannelID, err)
	}
	log.Info().Str("handle", report.ChannelHandle(channel.CanonicalURL)).Msg("Channel resolved")

	out := report.NewClaimWriter(session, r.dates.Display)
	if err := out.Header(channel); err != nil {
		return err
	}

	var authToken string
	if r.kind == report.KindVideos && r.cfg.Engagement {
		authToken, err = r.source.AuthToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth token: %w", err)
		}
	}

	resolver, err := crawl.NewChannelResolver(r.source, r.cfg.PageSize, r.cfg.ChannelCacheSize)
	if err != nil {
		return err
	}
	w := &claimWriter{
		Runner:    r,
		session:   session,
		out:       out,
		resolver:  resolver,
		stats:     crawl.NewStatFetcher(r.source),
		authToken: authToken,
	}

	req := r.source.ClaimSearchRequest(r.cfg.PageSize, map[string]any{
		"channel_ids": []string{r.cfg.ChannelID},
		"order_by":    []string{"release_time"},
	})

	written := 0
	err = crawl.NewPager(r.source, req).ForEach(ctx, func(page *odysee.Page) error {
		for i, raw := range page.Items {
			var claim odysee.Claim
			if err := json.Unmarshal(raw, &claim); err != nil {
				return fmt.Errorf("failed to decode claim %d of page %d: %w", i, page.Index, err)
			}
			if err := w.write(ctx, &claim); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("claims", written).Str("file", session.ResultPath()).Msg("Report written")
	return nil
}

// claimWriter holds the per-run state shared by every claim block.
type claimWriter struct {
	*Runner
	session   *report.Session
	out       *report.ClaimWriter
	resolver  *crawl.ChannelResolver
	stats     *crawl.StatFetcher
	authToken string
}

func (w *claimWriter) write(ctx context.Context, claim *odysee.Claim) error {
	target := claim.Target()
	log.Info().Str("url", report.ClaimURL(claim.CanonicalURL)).Str("claim_id", claim.ClaimID).Msg("Processing claim")

	if err := w.out.Claim(claim); err != nil {
		return err
	}

	if w.kind == report.KindVideos {
		bundle, err := w.stats.Fetch(ctx, target.ClaimID, w.authToken)
		if err != nil {
			return err
		}
		if w.cfg.Thumbnails {
			if err := w.saveThumbnail(ctx, claim); err != nil {
				return err
			}
		}
		if err := w.out.Stats(claim, bundle); err != nil {
			return err
		}
	}

	if err := w.out.Original(claim); err != nil {
		return err
	}

	if w.kind == report.KindComments || w.cfg.Comments {
		lines, err := w.commentLines(ctx, target.ClaimID)
		if err != nil {
			return err
		}
		if err := w.out.Lines(lines); err != nil {
			return err
		}
	}

	return w.out.End()
}

// commentLines fetches every comment page of a claim, rebuilds the thread and renders it.
func (w *claimWriter) commentLines(ctx context.Context, claimID string) ([]string, error) {
	req := w.source.CommentListRequest(w.cfg.PageSize, claimID)
	flat, err := crawl.CollectAs[odysee.Comment](ctx, crawl.NewPager(w.source, req))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of claim %s: %w", claimID, err)
	}

	thread, err := comments.Build(ctx, flat, w.resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to build comment tree of claim %s: %w", claimID, err)
	}
	log.Debug().
		Str("claim_id", claimID).
		Int("comments", len(flat)).
		Int("levels", len(thread.Levels)).
		Int("orphans", len(thread.Orphans)).
		Msg("Comment tree built")

	return comments.Render(thread.Roots, 0, w.dates.Display), nil
}

func (w *claimWriter) saveThumbnail(ctx context.Context, claim *odysee.Claim) error {
	thumbnailURL := claim.Target().ThumbnailURL()
	if thumbnailURL == "" {
		log.Warn().Str("claim_id", claim.ClaimID).Msg("Claim has no thumbnail")
		return nil
	}

	data, err := w.source.Thumbnail(ctx, thumbnailURL)
	if err != nil {
		return fmt.Errorf("failed to download thumbnail of claim %s: %w", claim.ClaimID, err)
	}

	name := claim.ClaimID + "_thumbnail_" + w.dates.File(w.dates.Now()) + ".webp"
	path, err := w.session.SaveFile(name, data)
	if err != nil {
		return err
	}
	log.Debug().Str("file", path).Msg("Thumbnail saved")
	return nil
}
