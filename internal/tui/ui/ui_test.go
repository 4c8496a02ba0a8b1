package ui

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"conversations", "thread", "info"} {
		p.AddPage(name, NewMenu(DefaultTheme()), true, false)
	}
	var changes [][]string
	p.SetOnChange(func(s []string) { changes = append(changes, s) })

	p.Reset("conversations")
	p.Push("thread")
	p.Push("thread")
	p.Push("info")
	if got := strings.Join(p.Stack(), ">"); got != "conversations>thread>info" {
		t.Fatalf("stack = %s", got)
	}
	if len(changes) != 3 {
		t.Errorf("changes = %d, want 3 (duplicate push ignored)", len(changes))
	}

	if !p.PopTo("conversations") {
		t.Fatal("PopTo failed")
	}
	if p.Current() != "conversations" {
		t.Errorf("current = %s", p.Current())
	}
	if p.Pop() != "" {
		t.Error("last page must not be popped")
	}
	if p.PopTo("missing") {
		t.Error("PopTo on unknown page should fail")
	}
}

func TestFlashExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model should have no message")
	}
	f.Err(errors.New("boom"))
	msg := f.Current()
	if msg == nil || msg.Text != "boom" || msg.Level != FlashErr {
		t.Fatalf("current = %+v", msg)
	}
	now = now.Add(11 * time.Second)
	if f.Current() != nil {
		t.Error("message should have expired")
	}
}

func TestCrumbsUseTitles(t *testing.T) {
	c := NewCrumbs(DefaultTheme(), strings.ToUpper)
	c.Update([]string{"conversations", "thread"})
	text := c.GetText(true)
	if !strings.Contains(text, "CONVERSATIONS") || !strings.Contains(text, "THREAD") {
		t.Errorf("crumbs = %q", text)
	}
}

func TestProfileInfo(t *testing.T) {
	pi := NewProfileInfo(DefaultTheme())
	pi.Update(ProfileData{Profile: "work", Status: "authenticated", Unread: 2})
	text := pi.GetText(true)
	for _, want := range []string{"work", "authenticated", "-"} {
		if !strings.Contains(text, want) {
			t.Errorf("profile info missing %q in %q", want, text)
		}
	}
}

func TestPromptHistoryAndCompletion(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.SetCompletions([]string{"status", "new", "group", "quit"})

	var submitted []string
	p.SetOnSubmit(func(mode PromptMode, text string) {
		if mode == PromptCommand {
			submitted = append(submitted, text)
		}
	})

	p.Activate(PromptCommand)
	p.submit("new bea")
	p.submit("new bea")
	p.submit("  ")
	p.submit("status")

	if got := strings.Join(p.History(), "|"); got != "new bea|status" {
		t.Fatalf("history = %q", got)
	}
	if len(submitted) != 4 {
		t.Errorf("submitted = %d, want 4", len(submitted))
	}

	p.Activate(PromptCommand)
	if got := p.Recall(-1); got != "status" {
		t.Errorf("recall -1 = %q", got)
	}
	if got := p.Recall(-1); got != "new bea" {
		t.Errorf("recall -2 = %q", got)
	}
	if got := p.Recall(-1); got != "new bea" {
		t.Errorf("recall clamps at oldest, got %q", got)
	}
	if got := p.Recall(5); got != "" {
		t.Errorf("recall past newest = %q", got)
	}

	if got := strings.Join(p.complete("s"), ","); got != "status" {
		t.Errorf("complete s = %q", got)
	}
	if got := p.complete("new bea"); got != nil {
		t.Errorf("arguments are not completed, got %v", got)
	}

	p.Activate(PromptFilter)
	p.submit("ana")
	if len(p.History()) != 2 {
		t.Error("filters must not enter the command history")
	}
	if p.complete("s") != nil {
		t.Error("filter mode has no completion")
	}
}
