package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultSeenRetention = 30 * time.Second
	DefaultSeenBuffer    = 256
)

// Options configures a Reconciler.
type Options struct {
	UserID        string
	SeenRetention time.Duration
	SeenBuffer    int
	Publisher     chat.SeenPublisher
	Bus           *bus.Bus
	Logger        *zap.Logger
}

// Reconciler merges one snapshot and the live stream into an Index. It is
// the single writer of that index; readers go through its read lock.
type Reconciler struct {
	mu      gosync.RWMutex
	index   *chat.Index
	tracker *chat.Tracker
	pending *Pending

	ready  bool
	buffer []chat.Event
	active string

	userID string
	bus    *bus.Bus
	logger *zap.Logger
	tick   time.Duration
}

// New creates a reconciler with an empty index.
func New(opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SeenRetention <= 0 {
		opts.SeenRetention = DefaultSeenRetention
	}
	if opts.SeenBuffer <= 0 {
		opts.SeenBuffer = DefaultSeenBuffer
	}
	index := chat.NewIndex()
	r := &Reconciler{
		index:   index,
		tracker: chat.NewTracker(index, opts.Publisher, logger),
		pending: NewPending(opts.SeenBuffer, opts.SeenRetention, logger),
		userID:  opts.UserID,
		bus:     opts.Bus,
		logger:  logger,
		tick:    max(opts.SeenRetention/2, 10*time.Millisecond),
	}
	if r.bus != nil {
		index.Watch(func(c chat.Change) {
			r.bus.Publish(bus.NewEvent(bus.KindIndexChanged, c))
		})
	}
	return r
}

// Ready reports whether the snapshot has been applied.
func (r *Reconciler) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// UserID returns the user the index is built for.
func (r *Reconciler) UserID() string { return r.userID }

// Apply applies one stream event. Before the snapshot lands events are
// buffered and nil is returned.
func (r *Reconciler) Apply(evt chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		r.buffer = append(r.buffer, evt)
		return nil
	}
	return r.applyLocked(evt)
}

// LoadSnapshot applies convs and then replays every buffered event that is
// not already represented in the snapshot.
func (r *Reconciler) LoadSnapshot(convs []*chat.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range convs {
		r.index.UpsertConversation(c)
	}
	r.ready = true

	buffered := r.buffer
	r.buffer = nil
	replayed := 0
	for _, evt := range buffered {
		if r.representedLocked(evt) {
			continue
		}
		if err := r.applyLocked(evt); err != nil {
			r.logger.Warn("buffered event skipped", zap.String("type", string(evt.Type)), zap.Error(err))
			continue
		}
		replayed++
	}
	r.logger.Info("snapshot applied",
		zap.Int("conversations", len(convs)),
		zap.Int("buffered", len(buffered)),
		zap.Int("replayed", replayed))
}

func (r *Reconciler) representedLocked(evt chat.Event) bool {
	switch evt.Type {
	case chat.ConversationCreated:
		return evt.Conversation != nil && r.index.HasConversation(evt.Conversation.ID)
	case chat.MessageCreated:
		return evt.Message != nil && r.index.HasMessage(evt.Message.ID)
	}
	return false
}

func (r *Reconciler) applyLocked(evt chat.Event) error {
	switch evt.Type {
	case chat.ConversationCreated, chat.ConversationUpdated:
		if evt.Conversation == nil {
			return fmt.Errorf("%s without conversation", evt.Type)
		}
		r.index.UpsertConversation(evt.Conversation)
		for _, m := range evt.Conversation.Messages {
			r.releaseLocked(m.ID)
		}
		return nil

	case chat.MessageCreated:
		m := evt.Message
		if m == nil {
			return fmt.Errorf("%s without message", evt.Type)
		}
		convID := m.ConversationID
		if convID == "" {
			convID = evt.ConversationID
		}
		inserted, err := r.index.AppendMessage(convID, m)
		if err != nil {
			return err
		}
		if inserted {
			r.releaseLocked(m.ID)
		}
		return nil

	case chat.MessageSeenUpdated:
		if !r.index.HasMessage(evt.MessageID) {
			r.pending.Add(evt.MessageID, evt.SeenBy)
			return nil
		}
		_, err := r.tracker.ApplySeen(evt.MessageID, evt.SeenBy)
		return err

	case chat.ConversationRemoved:
		id := evt.ConversationID
		if id == "" && evt.Conversation != nil {
			id = evt.Conversation.ID
		}
		if !r.index.RemoveConversation(id) {
			return fmt.Errorf("remove conversation: %w: %s", chat.ErrNotFound, id)
		}
		if id == r.active {
			r.active = ""
			if r.bus != nil {
				r.bus.Publish(bus.NewEvent(bus.KindNavAway, id))
			}
		}
		return nil
	}
	return fmt.Errorf("unknown event type %q", evt.Type)
}

func (r *Reconciler) releaseLocked(messageID string) {
	seenBy, ok := r.pending.Take(messageID)
	if !ok {
		return
	}
	if _, err := r.tracker.ApplySeen(messageID, seenBy); err != nil {
		r.logger.Warn("buffered seen update not applied", zap.String("message_id", messageID), zap.Error(err))
	}
}

// Run consumes stream while the snapshot loads, then keeps applying events
// until ctx is cancelled or the stream ends. Errors from individual events
// are logged and skipped.
func (r *Reconciler) Run(ctx context.Context, stream <-chan chat.Event, load func(context.Context) ([]*chat.Conversation, error)) error {
	type snapshot struct {
		convs []*chat.Conversation
		err   error
	}
	snapCh := make(chan snapshot, 1)
	go func() {
		convs, err := load(ctx)
		snapCh <- snapshot{convs, err}
	}()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-snapCh:
			if s.err != nil {
				return fmt.Errorf("load snapshot: %w: %w", chat.ErrTransportUnavailable, s.err)
			}
			r.LoadSnapshot(s.convs)

		case evt, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("event stream closed: %w", chat.ErrTransportUnavailable)
			}
			if err := r.Apply(evt); err != nil {
				level := r.logger.Warn
				if errors.Is(err, chat.ErrNotFound) {
					level = r.logger.Info
				}
				level("event skipped", zap.String("type", string(evt.Type)), zap.String("id", evt.ID), zap.Error(err))
			}

		case <-ticker.C:
			r.mu.Lock()
			r.pending.Expire()
			r.mu.Unlock()
		}
	}
}

// Projection returns the ordered conversation list for the session user.
func (r *Reconciler) Projection() []chat.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Projection(r.userID)
}

// Conversation returns a copy of one conversation.
func (r *Reconciler) Conversation(id string) (*chat.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Conversation(id)
}

// User returns a known user's profile.
func (r *Reconciler) User(id string) (chat.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.User(id)
}

// HasSeen reports whether the session user has seen a conversation.
func (r *Reconciler) HasSeen(conversationID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tracker.HasSeen(conversationID, r.userID)
}

// FindDirect looks up the direct conversation of a pair.
func (r *Reconciler) FindDirect(a, b string) (*chat.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.FindDirect(a, b)
}

// UpsertConversation merges a conversation obtained outside the stream,
// such as one returned by the resolver.
func (r *Reconciler) UpsertConversation(c *chat.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index.UpsertConversation(c)
}

// MarkSeen marks the latest message of a conversation as seen by the
// session user and queues the outbound mark.
func (r *Reconciler) MarkSeen(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker.MarkSeen(ctx, conversationID, r.userID)
}

// SetActive records the conversation currently open in a dependent view.
func (r *Reconciler) SetActive(conversationID string) {
	r.mu.Lock()
	r.active = conversationID
	r.mu.Unlock()
}

// Active returns the conversation currently open, if any.
func (r *Reconciler) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// PendingSeen returns the number of buffered seen updates.
func (r *Reconciler) PendingSeen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending.Len()
}
