package api

import (
	"context"
	"errors"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// ConversationService implements parley.v1.ConversationService.
type ConversationService struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewConversationService creates a conversation service backed by the store.
func NewConversationService(db *store.DB, b *bus.Bus, logger *zap.Logger) *ConversationService {
	return &ConversationService{db: db, bus: b, logger: nopIfNil(logger)}
}

func (s *ConversationService) Snapshot(ctx context.Context, _ *rpc.SnapshotRequest) (*rpc.SnapshotResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	convs, err := s.db.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SnapshotResponse{Conversations: convs}, nil
}

func (s *ConversationService) CreateDirect(ctx context.Context, req *rpc.CreateDirectRequest) (*rpc.CreateDirectResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.db.CreateDirectConversation(ctx, userID, req.UserID)
	var conflict *chat.ConflictError
	if errors.As(err, &conflict) {
		s.logger.Info("direct conversation exists", zap.String("conversation_id", conflict.Existing.ID))
		return &rpc.CreateDirectResponse{Conversation: conflict.Existing}, nil
	}
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("direct conversation created", zap.String("conversation_id", c.ID))
	fanout(s.bus, s.logger, chat.Event{Type: chat.ConversationCreated, Conversation: c, ConversationID: c.ID}, c.Participants)
	return &rpc.CreateDirectResponse{Conversation: c, Created: true}, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, req *rpc.CreateGroupRequest) (*rpc.ConversationResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.db.CreateGroup(ctx, userID, req.Name, req.Members)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("group created", zap.String("conversation_id", c.ID), zap.Int("members", len(c.Participants)))
	fanout(s.bus, s.logger, chat.Event{Type: chat.ConversationCreated, Conversation: c, ConversationID: c.ID}, c.Participants)
	return &rpc.ConversationResponse{Conversation: c}, nil
}

func (s *ConversationService) Get(ctx context.Context, req *rpc.GetConversationRequest) (*rpc.ConversationResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.db.Conversation(ctx, req.ID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ConversationResponse{Conversation: c}, nil
}

func (s *ConversationService) Delete(ctx context.Context, req *rpc.DeleteConversationRequest) (*rpc.DeleteConversationResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.db.DeleteConversation(ctx, req.ID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", c.ID), zap.String("by", userID))
	fanout(s.bus, s.logger, chat.Event{Type: chat.ConversationRemoved, ConversationID: c.ID}, c.Participants)
	return &rpc.DeleteConversationResponse{}, nil
}

func (s *ConversationService) ListUsers(ctx context.Context, _ *rpc.ListUsersRequest) (*rpc.ListUsersResponse, error) {
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.db.ListUsers(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ListUsersResponse{Users: users}, nil
}
