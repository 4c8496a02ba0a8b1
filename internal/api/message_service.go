package api

import (
	"context"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

const defaultPageSize = 50

// MessageService implements parley.v1.MessageService.
type MessageService struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewMessageService creates a message service backed by the store.
func NewMessageService(db *store.DB, b *bus.Bus, logger *zap.Logger) *MessageService {
	return &MessageService{db: db, bus: b, logger: nopIfNil(logger)}
}

func (s *MessageService) Send(ctx context.Context, req *rpc.SendRequest) (*rpc.SendResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.db.CreateMessage(ctx, req.ConversationID, userID, req.Body, req.Image)
	if err != nil {
		return nil, toStatus(err)
	}
	participants, err := s.db.Participants(ctx, req.ConversationID)
	if err != nil {
		return nil, toStatus(err)
	}
	fanout(s.bus, s.logger, chat.Event{Type: chat.MessageCreated, Message: m, ConversationID: m.ConversationID}, participants)
	return &rpc.SendResponse{Message: m}, nil
}

func (s *MessageService) MarkSeen(ctx context.Context, req *rpc.MarkSeenRequest) (*rpc.MarkSeenResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	m, changed, err := s.db.MarkSeen(ctx, req.ConversationID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	if changed {
		participants, err := s.db.Participants(ctx, req.ConversationID)
		if err != nil {
			return nil, toStatus(err)
		}
		fanout(s.bus, s.logger, chat.Event{
			Type:           chat.MessageSeenUpdated,
			ConversationID: m.ConversationID,
			MessageID:      m.ID,
			SeenBy:         m.SeenBy,
		}, participants)
	}
	return &rpc.MarkSeenResponse{Message: m, Changed: changed}, nil
}

func (s *MessageService) List(ctx context.Context, req *rpc.ListMessagesRequest) (*rpc.ListMessagesResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	limit := defaultPageSize
	if req.Limit > 0 {
		limit = req.Limit
	}
	msgs, err := s.db.ListMessages(ctx, req.ConversationID, userID, req.Before, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ListMessagesResponse{Messages: msgs, HasMore: len(msgs) == limit}, nil
}
