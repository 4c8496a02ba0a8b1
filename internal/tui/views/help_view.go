package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding and command reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.ColorTag(theme.MenuKeyColor)
	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Global", [][2]string{
			{":", "Command mode"},
			{"?", "This help"},
			{"Esc", "Back"},
			{"Ctrl-C", "Quit"},
		}},
		{"Conversations", [][2]string{
			{"Enter", "Open conversation"},
			{"1-9", "Open the Nth conversation"},
			{"/", "Filter by name or preview"},
			{"n", "New direct chat"},
			{"g", "New group"},
			{"Ctrl-D", "Delete conversation"},
		}},
		{"Thread", [][2]string{
			{"i", "Focus composer"},
			{"Enter", "Send (in composer)"},
			{"m", "Load older messages"},
			{"d", "Conversation details"},
		}},
		{"Commands", [][2]string{
			{":new <name or email>", "Open a direct chat"},
			{":group <name>", "Create a group from picked users"},
			{":delete", "Delete the selected conversation"},
			{":status", "Show daemon status"},
			{":logout", "Sign out"},
			{":quit", "Quit"},
		}},
	}

	var b strings.Builder
	for _, s := range sections {
		_, _ = fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			_, _ = fmt.Fprintf(&b, "  [%s]%-22s[-:-:-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(tv, b.String())
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}
