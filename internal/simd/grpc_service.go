package simd

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScreeningServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
const ScreeningServiceName = "nloscreen.v1.ScreeningService"

const (
	methodSimulate           = "/" + ScreeningServiceName + "/Simulate"
	methodSearch             = "/" + ScreeningServiceName + "/Search"
	methodGetSearch          = "/" + ScreeningServiceName + "/GetSearch"
	methodListSearches       = "/" + ScreeningServiceName + "/ListSearches"
	methodStopSearch         = "/" + ScreeningServiceName + "/StopSearch"
	methodStreamSearchEvents = "/" + ScreeningServiceName + "/StreamSearchEvents"
)

// ScreeningServiceServer is the server API for the screening service
type ScreeningServiceServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSearch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSearches(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopSearch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamSearchEvents(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterScreeningServiceServer registers srv on s
func RegisterScreeningServiceServer(s grpc.ServiceRegistrar, srv ScreeningServiceServer) {
	s.RegisterService(&screeningServiceDesc, srv)
}

func unaryHandler(method string, call func(ScreeningServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScreeningServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScreeningServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamSearchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ScreeningServiceServer).StreamSearchEvents(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var screeningServiceDesc = grpc.ServiceDesc{
	ServiceName: ScreeningServiceName,
	HandlerType: (*ScreeningServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler(methodSimulate, ScreeningServiceServer.Simulate)},
		{MethodName: "Search", Handler: unaryHandler(methodSearch, ScreeningServiceServer.Search)},
		{MethodName: "GetSearch", Handler: unaryHandler(methodGetSearch, ScreeningServiceServer.GetSearch)},
		{MethodName: "ListSearches", Handler: unaryHandler(methodListSearches, ScreeningServiceServer.ListSearches)},
		{MethodName: "StopSearch", Handler: unaryHandler(methodStopSearch, ScreeningServiceServer.StopSearch)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamSearchEvents",
			Handler:       streamSearchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "nloscreen/v1/screening.proto",
}

// ScreeningServiceClient is a client for the screening service
type ScreeningServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewScreeningServiceClient(cc grpc.ClientConnInterface) *ScreeningServiceClient {
	return &ScreeningServiceClient{cc: cc}
}

func (c *ScreeningServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScreeningServiceClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSimulate, in, opts...)
}

func (c *ScreeningServiceClient) Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSearch, in, opts...)
}

func (c *ScreeningServiceClient) GetSearch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetSearch, in, opts...)
}

func (c *ScreeningServiceClient) ListSearches(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListSearches, in, opts...)
}

func (c *ScreeningServiceClient) StopSearch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodStopSearch, in, opts...)
}

func (c *ScreeningServiceClient) StreamSearchEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &screeningServiceDesc.Streams[0], methodStreamSearchEvents, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
