package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/parley/internal/chat"
)

const selfName = "You"

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSession(s *chat.Session) error {
	if jsonOut {
		// The token is already cached; keep it out of scripts' output.
		out := *s
		out.Token = ""
		return outputJSON(out)
	}
	green := color.New(color.FgGreen)
	_, _ = green.Printf("Signed in as %s", s.Name)
	if s.Email != "" {
		fmt.Printf(" <%s>", s.Email)
	}
	fmt.Println()
	if !s.ExpiresAt.IsZero() {
		fmt.Printf("Session valid until %s\n", s.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}

func printConversation(c *chat.Conversation) error {
	if jsonOut {
		return outputJSON(c)
	}
	kind := "direct"
	if c.IsGroup {
		kind = "group"
	}
	cyan := color.New(color.FgCyan)
	_, _ = cyan.Printf("%s", c.ID)
	fmt.Printf(" (%s", kind)
	if c.Name != "" {
		fmt.Printf(", %s", c.Name)
	}
	fmt.Printf(", %d participants)\n", len(c.Participants))
	return nil
}

func printItems(items []chat.Item, now time.Time) {
	writeItems(color.Output, items, now)
}

func writeItems(w io.Writer, items []chat.Item, now time.Time) {
	bold := color.New(color.Bold)
	for _, it := range items {
		marker := "  "
		if it.Unread {
			marker = "● "
		}
		kind := "DM"
		if it.IsGroup {
			kind = "GROUP"
		}
		line := fmt.Sprintf("%s%-36s %-5s %-20s %-10s %s", marker, it.ID, kind, truncate(it.DisplayName, 20), stamp(it.LastMessageAt, now), truncate(it.Preview, 40))
		if it.Unread {
			_, _ = bold.Fprintln(w, line)
			continue
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func printMessage(m *chat.Message, names map[string]string, selfID string, now time.Time) {
	writeMessage(color.Output, m, names, selfID, now)
}

func writeMessage(w io.Writer, m *chat.Message, names map[string]string, selfID string, now time.Time) {
	who := names[m.SenderID]
	if who == "" {
		who = m.SenderID
	}
	c := color.New(color.FgMagenta)
	if m.SenderID == selfID {
		c = color.New(color.FgCyan)
	}
	_, _ = fmt.Fprintf(w, "[%s] ", stamp(m.CreatedAt, now))
	_, _ = c.Fprintf(w, "%s", who)
	body := m.Body
	if m.Image != "" {
		body = strings.TrimSpace(body + " [image] " + m.Image)
	}
	_, _ = fmt.Fprintf(w, ": %s\n", body)
}

// userNames maps participant ids to display names, naming selfID "You".
func userNames(users []chat.User, selfID string) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	names[selfID] = selfName
	return names
}

func stamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("2006-01-02")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
