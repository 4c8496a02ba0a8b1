package rpc

import (
	"context"

	"github.com/matheus3301/parley/internal/chat"
	"google.golang.org/grpc"
)

const EventServiceName = "parley.v1.EventService"

var EventWatch = fullMethod(EventServiceName, "Watch")

// WatchReadyKey is the header Watch sends once the caller's channel is
// subscribed. Events published after the client sees it are delivered.
const WatchReadyKey = "parley-watch-ready"

// EventServer is the server API for EventService.
type EventServer interface {
	Watch(*WatchRequest, grpc.ServerStreamingServer[chat.Event]) error
}

var EventServiceDesc = grpc.ServiceDesc{
	ServiceName: EventServiceName,
	HandlerType: (*EventServer)(nil),
	Streams: []grpc.StreamDesc{
		serverStream("Watch", EventServer.Watch),
	},
}

func RegisterEventServer(s grpc.ServiceRegistrar, srv EventServer) {
	s.RegisterService(&EventServiceDesc, srv)
}

// EventClient is the client API for EventService.
type EventClient struct {
	cc grpc.ClientConnInterface
}

func NewEventClient(cc grpc.ClientConnInterface) *EventClient {
	return &EventClient{cc: cc}
}

func (c *EventClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[chat.Event], error) {
	return openStream[WatchRequest, chat.Event](ctx, c.cc, &EventServiceDesc.Streams[0], EventWatch, in, opts)
}
