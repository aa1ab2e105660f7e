package hostbuf

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The inspector service only carries well-known protobuf types, so it is
// described here directly instead of through generated code.
const (
	inspectorServiceName     = "hostbuf.Inspector"
	inspectorListRuntimes    = "/hostbuf.Inspector/ListRuntimes"
	inspectorRuntimeStats    = "/hostbuf.Inspector/RuntimeStats"
	inspectorServiceMetadata = "hostbuf/inspector.proto"
)

type InspectorServer interface {
	ListRuntimes(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	RuntimeStats(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterInspectorServer(s grpc.ServiceRegistrar, srv InspectorServer) {
	s.RegisterService(&inspectorServiceDesc, srv)
}

func listRuntimesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InspectorServer).ListRuntimes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: inspectorListRuntimes,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InspectorServer).ListRuntimes(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func runtimeStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InspectorServer).RuntimeStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: inspectorRuntimeStats,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InspectorServer).RuntimeStats(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var inspectorServiceDesc = grpc.ServiceDesc{
	ServiceName: inspectorServiceName,
	HandlerType: (*InspectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListRuntimes",
			Handler:    listRuntimesHandler,
		},
		{
			MethodName: "RuntimeStats",
			Handler:    runtimeStatsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: inspectorServiceMetadata,
}
