package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DirectCreator asks the server to create the direct conversation of a pair.
// When the server already holds one it returns a *ConflictError carrying it.
type DirectCreator interface {
	CreateDirectConversation(ctx context.Context, selfID, otherID string) (*Conversation, error)
}

// DirectStore is the local view consulted and updated by the resolver.
type DirectStore interface {
	FindDirect(a, b string) (*Conversation, bool)
	UpsertConversation(c *Conversation)
}

// Resolver returns the single direct conversation of a user pair, creating
// it on the server when neither side has one yet.
type Resolver struct {
	store   DirectStore
	creator DirectCreator
	logger  *zap.Logger
	flight  singleflight.Group
}

// NewResolver creates a resolver.
func NewResolver(store DirectStore, creator DirectCreator, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, creator: creator, logger: logger}
}

// PairKey is the order-independent key of a user pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// FindOrCreate returns the direct conversation between selfID and otherID.
// Concurrent calls for the same pair share one server round trip.
func (r *Resolver) FindOrCreate(ctx context.Context, selfID, otherID string) (*Conversation, error) {
	if selfID == "" || otherID == "" || selfID == otherID {
		return nil, ErrInvalidParticipants
	}
	if c, ok := r.store.FindDirect(selfID, otherID); ok {
		return c, nil
	}

	v, err, _ := r.flight.Do(PairKey(selfID, otherID), func() (any, error) {
		if c, ok := r.store.FindDirect(selfID, otherID); ok {
			return c, nil
		}
		c, err := r.creator.CreateDirectConversation(ctx, selfID, otherID)
		var conflict *ConflictError
		if errors.As(err, &conflict) && conflict.Existing != nil {
			r.logger.Info("adopting existing direct conversation",
				zap.String("conversation_id", conflict.Existing.ID))
			c, err = conflict.Existing, nil
		}
		if err != nil {
			return nil, fmt.Errorf("create direct conversation: %w", err)
		}
		r.store.UpsertConversation(c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conversation), nil
}
