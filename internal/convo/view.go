package convo

import (
	"strings"

	"github.com/nmarchal/escale/internal/model"
)

// Viewport width classes for preview truncation.
const (
	narrowTermWidth = 80
	mediumTermWidth = 120

	narrowPreviewLen = 32
	mediumPreviewLen = 48
	widePreviewLen   = 64
)

// PreviewLen returns the preview truncation length for a terminal width.
func PreviewLen(termWidth int) int {
	switch {
	case termWidth < narrowTermWidth:
		return narrowPreviewLen
	case termWidth < mediumTermWidth:
		return mediumPreviewLen
	default:
		return widePreviewLen
	}
}

// TruncatePreview flattens a message body to a single line and cuts it
// to at most maxLen runes, appending an ellipsis when shortened.
func TruncatePreview(content string, maxLen int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= maxLen {
		return flat
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// TotalUnread sums the unread counts across all conversations.
func TotalUnread(convs []model.Conversation) int {
	total := 0
	for _, c := range convs {
		total += c.Unread
	}
	return total
}
