package chat

import (
	"slices"
	"time"
)

// User is a participant identity. Email and Image are optional.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// Conversation is a direct or group thread with its ordered messages.
type Conversation struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	IsGroup       bool       `json:"is_group"`
	CreatedAt     time.Time  `json:"created_at"`
	Participants  []string   `json:"participants"`
	Users         []User     `json:"users,omitempty"`
	Messages      []*Message `json:"messages,omitempty"`
	LastMessageAt time.Time  `json:"last_message_at"`
}

// Latest returns the newest message, or nil when the conversation is empty.
func (c *Conversation) Latest() *Message {
	if c == nil || len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c != nil && slices.Contains(c.Participants, userID)
}

// IsDirectBetween reports whether c is the one-to-one conversation of a and b.
func (c *Conversation) IsDirectBetween(a, b string) bool {
	if c == nil || c.IsGroup || len(c.Participants) != 2 {
		return false
	}
	p := c.Participants
	return (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a)
}

// Clone returns a deep copy safe to hand to readers outside the reconciler.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = slices.Clone(c.Participants)
	out.Users = slices.Clone(c.Users)
	out.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return &out
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body,omitempty"`
	Image          string    `json:"image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	SeenBy         []string  `json:"seen_by,omitempty"`
}

// HasSeen reports whether userID has seen m. The sender always has.
func (m *Message) HasSeen(userID string) bool {
	if m == nil || userID == "" {
		return false
	}
	return m.SenderID == userID || slices.Contains(m.SeenBy, userID)
}

// MergeSeen adds the given users to SeenBy and reports whether anything changed.
func (m *Message) MergeSeen(userIDs ...string) bool {
	changed := false
	for _, id := range userIDs {
		if id == "" || slices.Contains(m.SeenBy, id) {
			continue
		}
		m.SeenBy = append(m.SeenBy, id)
		changed = true
	}
	return changed
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.SeenBy = slices.Clone(m.SeenBy)
	return &out
}

// before orders messages by creation time, then id.
func (m *Message) before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// Cursor is a position in a conversation's history. Paging returns the
// messages ordered strictly before (CreatedAt, ID); the zero Cursor starts
// from the newest message.
type Cursor struct {
	CreatedAt time.Time `json:"created_at,omitempty"`
	ID        string    `json:"id,omitempty"`
}

// CursorBefore returns the cursor of the messages older than m.
func CursorBefore(m *Message) Cursor {
	if m == nil {
		return Cursor{}
	}
	return Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// IsZero reports whether c starts from the newest message.
func (c Cursor) IsZero() bool { return c.CreatedAt.IsZero() }

// Session is the authenticated identity of one client connection.
type Session struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventType names a live stream event.
type EventType string

const (
	ConversationCreated EventType = "conversation.created"
	ConversationUpdated EventType = "conversation.updated"
	MessageCreated      EventType = "message.created"
	MessageSeenUpdated  EventType = "message.seen_updated"
	ConversationRemoved EventType = "conversation.removed"
)

// Event is one entry of the live stream. Which fields are set depends on Type.
type Event struct {
	ID             string        `json:"id,omitempty"`
	Type           EventType     `json:"type"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	MessageID      string        `json:"message_id,omitempty"`
	SeenBy         []string      `json:"seen_by,omitempty"`
}
