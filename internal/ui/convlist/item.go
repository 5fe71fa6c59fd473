package convlist

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nmarchal/escale/internal/convo"
	"github.com/nmarchal/escale/internal/model"
	"github.com/nmarchal/escale/internal/theme"
)

// ConvItem wraps a model.Conversation so it can be used in a bubbles/list.
type ConvItem struct {
	Conv model.Conversation

	// previewLen is the truncation length for the current viewport class.
	previewLen int
}

// FilterValue returns the string used for fuzzy filtering.
func (i ConvItem) FilterValue() string { return i.Conv.Peer.Pseudo }

// Title returns the counterparty name for the list.
func (i ConvItem) Title() string { return i.Conv.Peer.Pseudo }

// Description returns the last-message preview line.
func (i ConvItem) Description() string {
	return convo.TruncatePreview(i.Conv.LastPreview, i.previewLen)
}

// ItemDelegate implements list.ItemDelegate for rendering conversation rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single conversation row: name, unread badge, preview,
// relative time of the last message.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(ConvItem)
	if !ok {
		return
	}

	name := ci.Conv.Peer.Pseudo

	badge := ""
	if ci.Conv.Unread > 0 {
		badge = " " + theme.UnreadBadgeStyle.Render(strconv.Itoa(ci.Conv.Unread))
	}

	preview := theme.MetaStyle.Render(ci.Description())
	when := theme.MetaStyle.Render(relativeTime(ci.Conv.LastActivity))

	line := fmt.Sprintf("%s%s  %s  %s", name, badge, preview, when)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
