package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ConversationServiceName = "parley.v1.ConversationService"

var (
	ConversationSnapshot     = fullMethod(ConversationServiceName, "Snapshot")
	ConversationCreateDirect = fullMethod(ConversationServiceName, "CreateDirect")
	ConversationCreateGroup  = fullMethod(ConversationServiceName, "CreateGroup")
	ConversationGet          = fullMethod(ConversationServiceName, "Get")
	ConversationDelete       = fullMethod(ConversationServiceName, "Delete")
	ConversationListUsers    = fullMethod(ConversationServiceName, "ListUsers")
)

// ConversationServer is the server API for ConversationService.
type ConversationServer interface {
	Snapshot(context.Context, *SnapshotRequest) (*SnapshotResponse, error)
	CreateDirect(context.Context, *CreateDirectRequest) (*CreateDirectResponse, error)
	CreateGroup(context.Context, *CreateGroupRequest) (*ConversationResponse, error)
	Get(context.Context, *GetConversationRequest) (*ConversationResponse, error)
	Delete(context.Context, *DeleteConversationRequest) (*DeleteConversationResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
}

var ConversationServiceDesc = grpc.ServiceDesc{
	ServiceName: ConversationServiceName,
	HandlerType: (*ConversationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ConversationServiceName, "Snapshot", ConversationServer.Snapshot),
		unary(ConversationServiceName, "CreateDirect", ConversationServer.CreateDirect),
		unary(ConversationServiceName, "CreateGroup", ConversationServer.CreateGroup),
		unary(ConversationServiceName, "Get", ConversationServer.Get),
		unary(ConversationServiceName, "Delete", ConversationServer.Delete),
		unary(ConversationServiceName, "ListUsers", ConversationServer.ListUsers),
	},
}

func RegisterConversationServer(s grpc.ServiceRegistrar, srv ConversationServer) {
	s.RegisterService(&ConversationServiceDesc, srv)
}

// ConversationClient is the client API for ConversationService.
type ConversationClient struct {
	cc grpc.ClientConnInterface
}

func NewConversationClient(cc grpc.ClientConnInterface) *ConversationClient {
	return &ConversationClient{cc: cc}
}

func (c *ConversationClient) Snapshot(ctx context.Context, in *SnapshotRequest, opts ...grpc.CallOption) (*SnapshotResponse, error) {
	return invoke[SnapshotResponse](ctx, c.cc, ConversationSnapshot, in, opts)
}

func (c *ConversationClient) CreateDirect(ctx context.Context, in *CreateDirectRequest, opts ...grpc.CallOption) (*CreateDirectResponse, error) {
	return invoke[CreateDirectResponse](ctx, c.cc, ConversationCreateDirect, in, opts)
}

func (c *ConversationClient) CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, ConversationCreateGroup, in, opts)
}

func (c *ConversationClient) Get(ctx context.Context, in *GetConversationRequest, opts ...grpc.CallOption) (*ConversationResponse, error) {
	return invoke[ConversationResponse](ctx, c.cc, ConversationGet, in, opts)
}

func (c *ConversationClient) Delete(ctx context.Context, in *DeleteConversationRequest, opts ...grpc.CallOption) (*DeleteConversationResponse, error) {
	return invoke[DeleteConversationResponse](ctx, c.cc, ConversationDelete, in, opts)
}

func (c *ConversationClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c.cc, ConversationListUsers, in, opts)
}
