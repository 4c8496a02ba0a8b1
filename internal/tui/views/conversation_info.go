package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays details about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders c with title. name resolves participant ids.
func (ci *ConversationInfo) Update(c *chat.Conversation, title string, name func(id string) string) {
	ci.Clear()
	if c == nil {
		return
	}

	kind := "Direct"
	if c.IsGroup {
		kind = "Group"
	}
	members := make([]string, 0, len(c.Participants))
	for _, id := range c.Participants {
		members = append(members, name(id))
	}
	lastActive := formatTimestamp(c.LastMessageAt, time.Now())
	if lastActive == "" {
		lastActive = "-"
	}

	fg, ct := ui.ColorTag(ci.theme.FgColor), ui.ColorTag(ci.theme.CounterColor)
	rows := [][2]string{
		{"Name", title},
		{"ID", c.ID},
		{"Type", kind},
		{"Members", strings.Join(members, ", ")},
		{"Created", c.CreatedAt.Local().Format(time.DateTime)},
		{"Last active", lastActive},
		{"Messages held", fmt.Sprint(len(c.Messages))},
		{"Preview", chat.PreviewText(c)},
	}
	_, _ = fmt.Fprint(ci, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, r[0]+":", ct, tview.Escape(sanitizeForTerminal(r[1])))
	}
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(title)))
}
