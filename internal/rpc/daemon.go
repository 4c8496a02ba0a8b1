package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const DaemonServiceName = "parley.v1.DaemonService"

var DaemonStatus = fullMethod(DaemonServiceName, "Status")

// DaemonServer is the server API for DaemonService.
type DaemonServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

var DaemonServiceDesc = grpc.ServiceDesc{
	ServiceName: DaemonServiceName,
	HandlerType: (*DaemonServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(DaemonServiceName, "Status", DaemonServer.Status),
	},
}

func RegisterDaemonServer(s grpc.ServiceRegistrar, srv DaemonServer) {
	s.RegisterService(&DaemonServiceDesc, srv)
}

// DaemonClient is the client API for DaemonService.
type DaemonClient struct {
	cc grpc.ClientConnInterface
}

func NewDaemonClient(cc grpc.ClientConnInterface) *DaemonClient {
	return &DaemonClient{cc: cc}
}

func (c *DaemonClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, DaemonStatus, in, opts)
}

// PublicMethods lists the calls that do not require a bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		AuthRegister:   true,
		AuthLogin:      true,
		AuthResume:     true,
		AuthLoginOAuth: true,
		AuthProviders:  true,
		DaemonStatus:   true,
	}
}
