// Package odysee contains Odysee/LBRY-specific data models
package odysee

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Epoch is a unix timestamp in seconds. The API returns it either as a JSON number
// or as a numeric string depending on the field.
type Epoch int64

// UnmarshalJSON accepts 1623456789, "1623456789" and null.
func (e *Epoch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch %q: %w", s, err)
	}
	*e = Epoch(v)
	return nil
}

// PageRequest describes one paginated endpoint call. Page is filled in by the pager.
type PageRequest struct {
	Endpoint string
	Method   string
	PageSize int
	Params   map[string]any
}

// WithPage returns a copy of the request params with the paging fields set.
// The template's own Params map is never modified.
func (r PageRequest) WithPage(page int) map[string]any {
	params := make(map[string]any, len(r.Params)+2)
	for k, v := range r.Params {
		params[k] = v
	}
	params["page"] = page
	params["page_size"] = r.PageSize
	return params
}

// Page is one decoded page of a paginated result.
type Page struct {
	Index      int
	Items      []json.RawMessage
	TotalPages int
	TotalItems int
}

// Comment is one record returned by comment.List.
type Comment struct {
	CommentID    string `json:"comment_id"`
	ParentID     string `json:"parent_id,omitempty"`
	ChannelID    string `json:"channel_id"`
	ChannelName  string `json:"channel_name"`
	ChannelTitle string `json:"-"`
	Text         string `json:"comment"`
	Timestamp    int64  `json:"timestamp"`
	Replies      int    `json:"replies,omitempty"`
}

// IsRoot reports whether the comment is a top-level comment.
func (c Comment) IsRoot() bool {
	return c.ParentID == ""
}

// DisplayName returns the resolved channel title, or the self-reported channel name
// when no title could be resolved.
func (c Comment) DisplayName() string {
	if c.ChannelTitle != "" {
		return c.ChannelTitle
	}
	return c.ChannelName
}

// ChannelLookup is the subset of a claim_search record used to resolve channel titles.
type ChannelLookup struct {
	ClaimID      string `json:"claim_id"`
	CanonicalURL string `json:"canonical_url"`
	Value        struct {
		Title string `json:"title"`
	} `json:"value"`
}

// Claim is a piece of content (video, repost, channel) as returned by claim_search.
type Claim struct {
	ClaimID        string     `json:"claim_id"`
	Name           string     `json:"name"`
	CanonicalURL   string     `json:"canonical_url"`
	ValueType      string     `json:"value_type"`
	Timestamp      Epoch      `json:"timestamp"`
	Value          ClaimValue `json:"value"`
	RepostedClaim  *Claim     `json:"reposted_claim,omitempty"`
	SigningChannel *Claim     `json:"signing_channel,omitempty"`
}

// ClaimValue holds the metadata of a claim.
type ClaimValue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ReleaseTime Epoch  `json:"release_time"`
	Video       *struct {
		Duration int64 `json:"duration"`
	} `json:"video,omitempty"`
	Thumbnail *struct {
		URL string `json:"url"`
	} `json:"thumbnail,omitempty"`
}

// ValueTypeRepost marks a claim that reposts another claim.
const ValueTypeRepost = "repost"

// IsRepost reports whether the claim is a repost with a resolvable original.
func (c *Claim) IsRepost() bool {
	return c.ValueType == ValueTypeRepost && c.RepostedClaim != nil
}

// Target returns the claim that carries the content: the reposted claim for reposts,
// the claim itself otherwise. Stats and comments are always read from the target.
func (c *Claim) Target() *Claim {
	if c.IsRepost() {
		return c.RepostedClaim
	}
	return c
}

// ReleasedAt returns value.release_time when present, the claim timestamp otherwise.
func (c *Claim) ReleasedAt() int64 {
	if c.Value.ReleaseTime != 0 {
		return int64(c.Value.ReleaseTime)
	}
	return int64(c.Timestamp)
}

// Duration returns the video duration in seconds and whether the claim has video metadata.
func (c *Claim) Duration() (int64, bool) {
	if c.Value.Video == nil {
		return 0, false
	}
	return c.Value.Video.Duration, true
}

// ThumbnailURL returns the thumbnail URL, or an empty string.
func (c *Claim) ThumbnailURL() string {
	if c.Value.Thumbnail == nil {
		return ""
	}
	return c.Value.Thumbnail.URL
}

// VideoStatBundle holds the per-video counters. A nil field was not fetched.
type VideoStatBundle struct {
	ViewCount    *int64
	LikeCount    *int64
	DislikeCount *int64
	CommentCount *int64
}

// Reactions holds the like/dislike counters of a claim.
type Reactions struct {
	Likes    int64
	Dislikes int64
}
