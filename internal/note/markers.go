package note

import "strings"

// Marker is a literal inline formatting marker pair.
type Marker string

const (
	MarkerBold      Marker = "**"
	MarkerItalic    Marker = "*"
	MarkerUnderline Marker = "__"
)

// WrapRange wraps the [start, end) byte range of text with the marker on
// both sides, returning the new text and the range of the wrapped content.
// An inverted or out-of-bounds range is clamped.
func WrapRange(text string, start, end int, m Marker) (string, int, int) {
	if start > end {
		start, end = end, start
	}
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}

	marker := string(m)
	wrapped := text[:start] + marker + text[start:end] + marker + text[end:]
	return wrapped, start + len(marker), end + len(marker)
}

// StripMarkers removes all inline formatting markers, for plain-text export
// and clipboard copy.
func StripMarkers(text string) string {
	text = strings.ReplaceAll(text, string(MarkerBold), "")
	text = strings.ReplaceAll(text, string(MarkerUnderline), "")
	return strings.ReplaceAll(text, string(MarkerItalic), "")
}
