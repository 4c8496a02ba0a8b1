package chat

import (
	"fmt"
	"slices"
	"sort"
)

// ChangeKind classifies an index mutation.
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeMessage  ChangeKind = "message"
	ChangeSeen     ChangeKind = "seen"
	ChangeRemoved  ChangeKind = "removed"
)

// Change describes a single mutation delivered to Watch hooks.
type Change struct {
	Kind           ChangeKind
	ConversationID string
	MessageID      string
}

// Index is the in-memory conversation/message graph of one session.
//
// Index does no locking of its own. It is owned by a single writer (the
// reconciler), which serializes mutations against concurrent readers.
// Message ids are unique across the whole index, matching the store, so
// seen updates can be resolved by message id alone.
type Index struct {
	convs    map[string]*Conversation
	msgs     map[string]*Message
	users    map[string]User
	watchers []func(Change)
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		convs: make(map[string]*Conversation),
		msgs:  make(map[string]*Message),
		users: make(map[string]User),
	}
}

// Watch registers fn to be called after every mutation.
func (x *Index) Watch(fn func(Change)) {
	x.watchers = append(x.watchers, fn)
}

func (x *Index) notify(c Change) {
	for _, fn := range x.watchers {
		fn(c)
	}
}

// UpsertConversation inserts c or merges it into the existing entry: scalar
// fields are replaced, participants are union-merged and existing messages
// are kept. Messages carried by c are appended.
func (x *Index) UpsertConversation(c *Conversation) {
	if c == nil || c.ID == "" {
		return
	}
	for _, u := range c.Users {
		x.PutUser(u)
	}

	cur, ok := x.convs[c.ID]
	if !ok {
		cur = &Conversation{
			ID:            c.ID,
			Name:          c.Name,
			IsGroup:       c.IsGroup,
			CreatedAt:     c.CreatedAt,
			Participants:  dedupe(c.Participants),
			LastMessageAt: c.LastMessageAt,
		}
		if cur.LastMessageAt.Before(cur.CreatedAt) {
			cur.LastMessageAt = cur.CreatedAt
		}
		x.convs[c.ID] = cur
	} else {
		cur.Name = c.Name
		cur.IsGroup = c.IsGroup
		if !c.CreatedAt.IsZero() {
			cur.CreatedAt = c.CreatedAt
		}
		for _, p := range c.Participants {
			if p != "" && !slices.Contains(cur.Participants, p) {
				cur.Participants = append(cur.Participants, p)
			}
		}
		if c.LastMessageAt.After(cur.LastMessageAt) {
			cur.LastMessageAt = c.LastMessageAt
		}
	}

	for _, m := range c.Messages {
		x.insert(cur, m)
	}
	x.notify(Change{Kind: ChangeUpserted, ConversationID: c.ID})
}

// AppendMessage inserts m into the conversation in CreatedAt order. It
// reports false without error when a message with the same id is already
// present, and fails with ErrNotFound when the conversation is unknown. An
// id already held by another conversation fails with ErrMessageIDInUse.
func (x *Index) AppendMessage(conversationID string, m *Message) (bool, error) {
	if m == nil || m.ID == "" {
		return false, fmt.Errorf("append message to %s: %w", conversationID, ErrMissingMessageID)
	}
	cur, ok := x.convs[conversationID]
	if !ok {
		return false, fmt.Errorf("append message %s: %w: conversation %s", m.ID, ErrNotFound, conversationID)
	}
	if prev, ok := x.msgs[m.ID]; ok && prev.ConversationID != cur.ID {
		return false, fmt.Errorf("append message %s: %w: %s", m.ID, ErrMessageIDInUse, prev.ConversationID)
	}
	if !x.insert(cur, m) {
		return false, nil
	}
	x.notify(Change{Kind: ChangeMessage, ConversationID: conversationID, MessageID: m.ID})
	return true, nil
}

func (x *Index) insert(c *Conversation, m *Message) bool {
	if m == nil || m.ID == "" {
		return false
	}
	if _, dup := x.msgs[m.ID]; dup {
		return false
	}
	stored := m.Clone()
	stored.ConversationID = c.ID

	i := sort.Search(len(c.Messages), func(i int) bool {
		return stored.before(c.Messages[i])
	})
	c.Messages = slices.Insert(c.Messages, i, stored)
	x.msgs[stored.ID] = stored

	if stored.CreatedAt.After(c.LastMessageAt) {
		c.LastMessageAt = stored.CreatedAt
	}
	return true
}

// RemoveConversation deletes a conversation and its messages.
func (x *Index) RemoveConversation(id string) bool {
	c, ok := x.convs[id]
	if !ok {
		return false
	}
	for _, m := range c.Messages {
		delete(x.msgs, m.ID)
	}
	delete(x.convs, id)
	x.notify(Change{Kind: ChangeRemoved, ConversationID: id})
	return true
}

// Conversation returns a copy of the conversation with the given id.
func (x *Index) Conversation(id string) (*Conversation, bool) {
	c, ok := x.convs[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Message returns a copy of the message with the given id.
func (x *Index) Message(id string) (*Message, bool) {
	m, ok := x.msgs[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// HasConversation reports whether id is known.
func (x *Index) HasConversation(id string) bool {
	_, ok := x.convs[id]
	return ok
}

// HasMessage reports whether a message id is known.
func (x *Index) HasMessage(id string) bool {
	_, ok := x.msgs[id]
	return ok
}

// Len returns the number of conversations.
func (x *Index) Len() int { return len(x.convs) }

// FindDirect returns the direct conversation between a and b, if any.
// Should duplicates exist the lowest id wins.
func (x *Index) FindDirect(a, b string) (*Conversation, bool) {
	var found *Conversation
	for _, c := range x.convs {
		if !c.IsDirectBetween(a, b) {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = c
		}
	}
	if found == nil {
		return nil, false
	}
	return found.Clone(), true
}

// PutUser records or refreshes a user's profile.
func (x *Index) PutUser(u User) {
	if u.ID == "" {
		return
	}
	x.users[u.ID] = u
}

// User returns the profile of a known user.
func (x *Index) User(id string) (User, bool) {
	u, ok := x.users[id]
	return u, ok
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
