package chat

import (
	"slices"
	"strings"
	"time"
)

// Item is one display-ready row of the conversation list.
type Item struct {
	ID            string
	DisplayName   string
	Preview       string
	LastMessageAt time.Time
	Unread        bool
	IsGroup       bool
}

// Projection returns the conversations ordered by LastMessageAt descending,
// ties broken by id ascending, annotated for currentUserID. A conversation
// without messages is never unread.
func (x *Index) Projection(currentUserID string) []Item {
	items := make([]Item, 0, len(x.convs))
	for _, c := range x.convs {
		items = append(items, Item{
			ID:            c.ID,
			DisplayName:   x.displayName(c, currentUserID),
			Preview:       PreviewText(c),
			LastMessageAt: c.LastMessageAt,
			Unread:        c.Latest() != nil && !HasSeen(c, currentUserID),
			IsGroup:       c.IsGroup,
		})
	}
	slices.SortFunc(items, func(a, b Item) int {
		if c := b.LastMessageAt.Compare(a.LastMessageAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items
}

func (x *Index) displayName(c *Conversation, currentUserID string) string {
	if c.Name != "" {
		return c.Name
	}
	for _, p := range c.Participants {
		if p == currentUserID {
			continue
		}
		if u, ok := x.users[p]; ok && u.Name != "" {
			return u.Name
		}
		return p
	}
	return ""
}
