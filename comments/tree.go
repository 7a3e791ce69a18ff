// Package comments rebuilds reply threads from the flat comment.List output and renders
// them as indented text.
package comments

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/rs/zerolog/log"
)

// Node is a comment with the replies attached to it. A node is held by exactly one
// SubReplies slice (or by Thread.Roots); ParentID stays a lookup key.
type Node struct {
	odysee.Comment
	SubReplies []*Node
}

// Thread is the reconstructed comment set of one claim.
type Thread struct {
	// Roots are the top-level comments in upstream order
	Roots []*Node
	// Replies are every non-root comment in upstream order, attached or not
	Replies []*Node
	// Levels[0] is Roots, Levels[n] the replies n hops away from a root
	Levels [][]*Node
	// Orphans are replies that cannot be reached from any root
	Orphans []*Node
}

// TitleResolver maps channel ids to display titles
type TitleResolver interface {
	Resolve(ctx context.Context, channelIDs []string) (map[string]string, error)
}

// Build partitions the flat comments, resolves channel titles with one resolver call and
// attaches every reply to its parent. A nil resolver leaves every comment on its own
// channel name.
func Build(ctx context.Context, flat []odysee.Comment, resolver TitleResolver) (*Thread, error) {
	thread := &Thread{}
	nodes := make([]*Node, 0, len(flat))
	channelIDs := make([]string, 0)
	seenChannels := make(map[string]struct{})

	for _, c := range flat {
		n := &Node{Comment: c}
		nodes = append(nodes, n)
		if c.IsRoot() {
			thread.Roots = append(thread.Roots, n)
		} else {
			thread.Replies = append(thread.Replies, n)
		}
		if _, ok := seenChannels[c.ChannelID]; !ok {
			seenChannels[c.ChannelID] = struct{}{}
			channelIDs = append(channelIDs, c.ChannelID)
		}
	}

	if resolver != nil && len(flat) > 0 {
		titles, err := resolver.Resolve(ctx, channelIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve comment channels: %w", err)
		}
		for _, n := range nodes {
			if title, ok := titles[n.ChannelID]; ok {
				n.ChannelTitle = title
			}
		}
	}

	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.CommentID]; dup {
			log.Warn().Str("comment_id", n.CommentID).Msg("Duplicate comment id, keeping the first occurrence")
			continue
		}
		byID[n.CommentID] = n
	}

	for _, r := range thread.Replies {
		parent, ok := byID[r.ParentID]
		if !ok || parent == r {
			continue
		}
		parent.SubReplies = append(parent.SubReplies, r)
	}

	thread.Levels, thread.Orphans = levels(thread.Roots, thread.Replies)
	if len(thread.Orphans) > 0 {
		log.Debug().Int("orphans", len(thread.Orphans)).Msg("Replies without a reachable parent are not rendered")
	}

	return thread, nil
}

// levels walks the attached tree breadth-first from the roots. Anything not reached is an
// orphan; cycles among replies are never reached because roots have no parent.
func levels(roots, replies []*Node) ([][]*Node, []*Node) {
	var out [][]*Node
	reached := make(map[*Node]struct{}, len(roots)+len(replies))

	current := roots
	for len(current) > 0 {
		out = append(out, current)
		var next []*Node
		for _, n := range current {
			reached[n] = struct{}{}
			next = append(next, n.SubReplies...)
		}
		current = next
	}

	var orphans []*Node
	for _, r := range replies {
		if _, ok := reached[r]; !ok {
			orphans = append(orphans, r)
		}
	}
	return out, orphans
}

// Count returns the number of nodes reachable from the roots.
func (t *Thread) Count() int {
	total := 0
	for _, level := range t.Levels {
		total += len(level)
	}
	return total
}
