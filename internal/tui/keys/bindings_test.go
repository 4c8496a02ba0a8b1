package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestScopeWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.Rune(Global, 'q', "quit", func() { hit = "global" })
	r.Rune("thread", 'q', "back", func() { hit = "thread" })
	r.Key(Global, tcell.KeyCtrlD, "delete", func() { hit = "delete" })

	if !r.HandleEvent("thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) || hit != "thread" {
		t.Errorf("thread scope: hit = %q", hit)
	}
	if !r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) || hit != "global" {
		t.Errorf("global fallback: hit = %q", hit)
	}
	if !r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl)) || hit != "delete" {
		t.Errorf("special key: hit = %q", hit)
	}
	if r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key handled")
	}
}

func TestActionsOrder(t *testing.T) {
	r := NewRegistry()
	r.Rune("list", 'n', "new", func() {})
	r.Rune("list", 'g', "group", func() {})
	r.Rune(Global, '?', "help", func() {})

	var labels string
	for _, a := range r.Actions("list") {
		labels += a.Label()
	}
	if labels != "ng?" {
		t.Errorf("labels = %q", labels)
	}
	if got := (&Action{Key: tcell.KeyEscape}).Label(); got != "Esc" {
		t.Errorf("escape label = %q", got)
	}
}
