package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const MessageServiceName = "parley.v1.MessageService"

var (
	MessageSend     = fullMethod(MessageServiceName, "Send")
	MessageMarkSeen = fullMethod(MessageServiceName, "MarkSeen")
	MessageList     = fullMethod(MessageServiceName, "List")
)

// MessageServer is the server API for MessageService.
type MessageServer interface {
	Send(context.Context, *SendRequest) (*SendResponse, error)
	MarkSeen(context.Context, *MarkSeenRequest) (*MarkSeenResponse, error)
	List(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "Send", MessageServer.Send),
		unary(MessageServiceName, "MarkSeen", MessageServer.MarkSeen),
		unary(MessageServiceName, "List", MessageServer.List),
	},
}

func RegisterMessageServer(s grpc.ServiceRegistrar, srv MessageServer) {
	s.RegisterService(&MessageServiceDesc, srv)
}

// MessageClient is the client API for MessageService.
type MessageClient struct {
	cc grpc.ClientConnInterface
}

func NewMessageClient(cc grpc.ClientConnInterface) *MessageClient {
	return &MessageClient{cc: cc}
}

func (c *MessageClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, MessageSend, in, opts)
}

func (c *MessageClient) MarkSeen(ctx context.Context, in *MarkSeenRequest, opts ...grpc.CallOption) (*MarkSeenResponse, error) {
	return invoke[MarkSeenResponse](ctx, c.cc, MessageMarkSeen, in, opts)
}

func (c *MessageClient) List(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, MessageList, in, opts)
}
