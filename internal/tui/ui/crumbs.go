package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
	title func(page string) string
}

// NewCrumbs creates a breadcrumb bar. title maps a page name to its label;
// nil shows page names as they are.
func NewCrumbs(theme *Theme, title func(page string) string) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	if title == nil {
		title = func(page string) string { return page }
	}
	return &Crumbs{TextView: tv, theme: theme, title: title}
}

// Update renders the trail of stack.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg
		attr := ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			ColorTag(fg), ColorTag(bg), attr, tview.Escape(c.title(name))))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}

func fmtHex(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
