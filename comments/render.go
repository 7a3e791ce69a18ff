package comments

import (
	"strings"
)

// IndentStep is the number of spaces added per reply level.
const IndentStep = 4

// TimestampFormatter turns epoch seconds into display text.
type TimestampFormatter func(epoch int64) string

// Render walks nodes depth-first and returns one entry per comment:
// "<date> <channel> (<channel id>) : <text>" padded with indent spaces. Replies follow
// their parent at indent+IndentStep, in attachment order. Continuation lines of a
// multi-line comment get the same padding.
func Render(nodes []*Node, indent int, format TimestampFormatter) []string {
	var lines []string
	render(nodes, indent, format, &lines)
	return lines
}

func render(nodes []*Node, indent int, format TimestampFormatter, lines *[]string) {
	pad := strings.Repeat(" ", indent)
	for _, n := range nodes {
		line := format(n.Timestamp) + " " + n.DisplayName() + " (" + n.ChannelID + ") : " + n.Text
		*lines = append(*lines, pad+strings.ReplaceAll(line, "\n", "\n"+pad))

		if len(n.SubReplies) > 0 {
			render(n.SubReplies, indent+IndentStep, format, lines)
		}
	}
}
