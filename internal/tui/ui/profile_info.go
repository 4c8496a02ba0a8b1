package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData is what the header shows about the running client.
type ProfileData struct {
	Profile       string
	User          string
	Status        string
	Conversations int
	Unread        int
	Pending       int
}

// ProfileInfo displays profile and session metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new profile info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{TextView: tv, theme: theme}
}

// Update renders data.
func (pi *ProfileInfo) Update(data ProfileData) {
	pi.Clear()

	user := data.User
	if user == "" {
		user = "-"
	}
	rows := []struct {
		label string
		value any
	}{
		{"Profile:", data.Profile},
		{"User:", tview.Escape(user)},
		{"Status:", data.Status},
		{"Chats:", data.Conversations},
		{"Unread:", data.Unread},
		{"Queued:", data.Pending},
	}
	fg, counter := ColorTag(pi.theme.FgColor), ColorTag(pi.theme.CounterColor)
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(pi, "\n")
		}
		_, _ = fmt.Fprintf(pi, "[%s::b]%-8s[-:-:-] [%s]%v[-]", fg, r.label, counter, r.value)
	}
}
