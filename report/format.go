// Package report writes the per-run text reports and their companion files.
package report

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	lbryPrefix   = "lbry://@"
	odyseePrefix = "https://odysee.com/@"
	channelBase  = "https://www.odysee.com/@"

	// NotAvailable is written for values that were not fetched or do not exist
	NotAvailable = "N/A"
)

// FormatDuration renders seconds as HH'H'MM'M'SS'S', dropping leading zero units:
// 45 -> 45S, 125 -> 02M05S, 3725 -> 01H02M05S.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%02dH%02dM%02dS", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%02dM%02dS", minutes, secs)
	default:
		return fmt.Sprintf("%02dS", secs)
	}
}

// ClaimURL turns a canonical lbry:// URL into its odysee.com address.
func ClaimURL(canonical string) string {
	return strings.ReplaceAll(strings.Replace(canonical, lbryPrefix, odyseePrefix, 1), "#", ":")
}

// ChannelHandle returns what follows the @ of a channel's odysee.com address
func ChannelHandle(canonical string) string {
	return strings.ReplaceAll(strings.TrimPrefix(canonical, lbryPrefix), "#", ":")
}

// ChannelURL is the address written in the report header.
func ChannelURL(handle string) string {
	return channelBase + handle
}

// Stat renders an optional counter
func Stat(v *int64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatInt(*v, 10)
}
