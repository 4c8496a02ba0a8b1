package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	previewImage   = "Sent an image"
	previewStarted = "Started a conversation"
)

// PreviewText returns the one-line summary of the latest message.
func PreviewText(c *Conversation) string {
	m := c.Latest()
	switch {
	case m == nil:
		return previewStarted
	case m.Image != "":
		return previewImage
	case m.Body != "":
		return m.Body
	default:
		return previewStarted
	}
}

// HasSeen reports whether userID has seen the latest message of c.
func HasSeen(c *Conversation, userID string) bool {
	return c.Latest().HasSeen(userID)
}

// SeenPublisher forwards a mark-seen intent to the server.
type SeenPublisher interface {
	PublishSeen(ctx context.Context, conversationID string) error
}

// Tracker computes and updates seen receipts on top of an Index.
type Tracker struct {
	index  *Index
	pub    SeenPublisher
	logger *zap.Logger
}

// NewTracker creates a receipt tracker. pub may be nil for read-only use.
func NewTracker(index *Index, pub SeenPublisher, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{index: index, pub: pub, logger: logger}
}

// HasSeen reports whether userID has seen the latest message of a conversation.
func (t *Tracker) HasSeen(conversationID, userID string) bool {
	c, ok := t.index.convs[conversationID]
	if !ok {
		return false
	}
	return HasSeen(c, userID)
}

// MarkSeen records userID on the latest message of the conversation and
// emits an outbound mark-seen. Delivery failures are logged, not returned.
func (t *Tracker) MarkSeen(ctx context.Context, conversationID, userID string) error {
	c, ok := t.index.convs[conversationID]
	if !ok {
		return fmt.Errorf("mark seen: %w: conversation %s", ErrNotFound, conversationID)
	}
	latest := c.Latest()
	if latest == nil || latest.HasSeen(userID) {
		return nil
	}
	latest.MergeSeen(userID)
	t.index.notify(Change{Kind: ChangeSeen, ConversationID: conversationID, MessageID: latest.ID})

	if t.pub != nil {
		if err := t.pub.PublishSeen(ctx, conversationID); err != nil {
			t.logger.Warn("mark seen not delivered",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
		}
	}
	return nil
}

// ApplySeen merges a seen list received from the server into a message.
func (t *Tracker) ApplySeen(messageID string, seenBy []string) (bool, error) {
	m, ok := t.index.msgs[messageID]
	if !ok {
		return false, fmt.Errorf("apply seen: %w: message %s", ErrNotFound, messageID)
	}
	if !m.MergeSeen(seenBy...) {
		return false, nil
	}
	t.index.notify(Change{Kind: ChangeSeen, ConversationID: m.ConversationID, MessageID: m.ID})
	return true, nil
}
