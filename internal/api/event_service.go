package api

import (
	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
)

// DefaultStreamBuffer is the per-subscriber bus buffer of a Watch stream.
const DefaultStreamBuffer = 256

// EventService implements parley.v1.EventService.
type EventService struct {
	bus    *bus.Bus
	buffer int
	logger *zap.Logger
}

// NewEventService creates the live event service. A buffer <= 0 uses
// DefaultStreamBuffer.
func NewEventService(b *bus.Bus, buffer int, logger *zap.Logger) *EventService {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &EventService{bus: b, buffer: buffer, logger: nopIfNil(logger)}
}

// Watch streams the events of the caller's channel until the client goes away.
func (s *EventService) Watch(req *rpc.WatchRequest, stream grpc.ServerStreamingServer[chat.Event]) error {
	ctx := stream.Context()
	userID, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	if req.ChannelID != "" && req.ChannelID != userID {
		return grpcstatus.Error(codes.PermissionDenied, "channel belongs to another user")
	}

	ch, unsub := s.bus.Subscribe(bus.UserNamespace(userID), s.buffer)
	defer unsub()
	if err := stream.SendHeader(metadata.Pairs(rpc.WatchReadyKey, "1")); err != nil {
		return err
	}
	s.logger.Info("watch opened", zap.String("user_id", userID))
	defer s.logger.Info("watch closed", zap.String("user_id", userID))

	for {
		select {
		case evt := <-ch:
			e, ok := evt.Payload.(chat.Event)
			if !ok {
				continue
			}
			if err := stream.Send(&e); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
