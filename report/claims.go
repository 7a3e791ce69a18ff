package report

import (
	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
)

// LineWriter receives finished report lines.
type LineWriter interface {
	Writeln(lines ...string) error
}

// ClaimWriter lays out the channel header and claim blocks of a report.
type ClaimWriter struct {
	out  LineWriter
	date func(epoch int64) string
}

func NewClaimWriter(out LineWriter, date func(epoch int64) string) *ClaimWriter {
	return &ClaimWriter{out: out, date: date}
}

// Header writes the channel line followed by a blank line.
func (w *ClaimWriter) Header(channel *odysee.Claim) error {
	return w.out.Writeln(
		"Channel "+ChannelURL(ChannelHandle(channel.CanonicalURL))+" id : "+channel.ClaimID,
		"",
	)
}

// Claim writes the URL, date, id, title and duration of c. Title and duration come from the
// reposted claim for reposts.
func (w *ClaimWriter) Claim(c *odysee.Claim) error {
	target := c.Target()
	duration := NotAvailable
	if seconds, ok := target.Duration(); ok {
		duration = FormatDuration(seconds)
	}

	return w.out.Writeln(
		ClaimURL(c.CanonicalURL),
		"Date : "+w.date(c.ReleasedAt()),
		"Id : "+c.ClaimID,
		"Title : "+target.Value.Title,
		"Duration : "+duration,
	)
}

// Stats writes the description and counters of a videos report.
func (w *ClaimWriter) Stats(c *odysee.Claim, stats odysee.VideoStatBundle) error {
	return w.out.Writeln(
		"Description : "+c.Target().Value.Description,
		"Views : "+Stat(stats.ViewCount),
		"Likes : "+Stat(stats.LikeCount),
		"Dislikes : "+Stat(stats.DislikeCount),
		"Comments : "+Stat(stats.CommentCount),
	)
}

// Original writes the "Original content" block of a repost. It writes nothing for other claims.
func (w *ClaimWriter) Original(c *odysee.Claim) error {
	if !c.IsRepost() {
		return nil
	}
	original := c.RepostedClaim

	author := NotAvailable
	if ch := original.SigningChannel; ch != nil {
		author = ClaimURL(ch.CanonicalURL) + " (" + ch.ClaimID + ")"
	}

	return w.out.Writeln(
		"",
		"Original content :",
		"URL : "+ClaimURL(original.CanonicalURL),
		"Id : "+original.ClaimID,
		"Date original content : "+w.date(int64(original.Timestamp)),
		"Author : "+author,
	)
}

// Lines writes pre-rendered lines such as a comment thread
func (w *ClaimWriter) Lines(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return w.out.Writeln(lines...)
}

// End closes a claim block with a blank line.
func (w *ClaimWriter) End() error {
	return w.out.Writeln("")
}
