package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "protocol.v1.ProtocolExtractor"

// ProtocolExtractorServer is the daemon's gRPC surface. Requests and
// responses are well-known types so no generated code is needed.
type ProtocolExtractorServer interface {
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRuns(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProtocolExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessDocument", Handler: processDocumentHandler},
		{MethodName: "ListRuns", Handler: listRunsHandler},
		{MethodName: "GetRun", Handler: getRunHandler},
		{MethodName: "ExportRuns", Handler: exportRunsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protocol/v1/protocol.proto",
}

func RegisterProtocolExtractorServer(s grpc.ServiceRegistrar, srv ProtocolExtractorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the invoke path for a method of the service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func processDocumentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProtocolExtractorServer).ProcessDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("ProcessDocument")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProtocolExtractorServer).ProcessDocument(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProtocolExtractorServer).ListRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("ListRuns")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProtocolExtractorServer).ListRuns(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProtocolExtractorServer).GetRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("GetRun")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProtocolExtractorServer).GetRun(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func exportRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProtocolExtractorServer).ExportRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod("ExportRuns")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProtocolExtractorServer).ExportRuns(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
