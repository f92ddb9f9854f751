package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the results service.
const ServiceName = "neurorecall.v1.RecallService"

// Method names, as used in full method paths.
const (
	MethodPing             = "Ping"
	MethodGetProfileScores = "GetProfileScores"
	MethodListResults      = "ListResults"
)

// FullMethod returns the path of method, e.g. "/neurorecall.v1.RecallService/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RecallServiceServer is implemented by GRPCServer. Requests and responses
// are google.protobuf.Struct values.
type RecallServiceServer interface {
	Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProfileScores(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(srv RecallServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecallServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecallServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc registers RecallServiceServer without generated stubs.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecallServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, RecallServiceServer.Ping),
		unary(MethodGetProfileScores, RecallServiceServer.GetProfileScores),
		unary(MethodListResults, RecallServiceServer.ListResults),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "neurorecall/v1/recall.proto",
}
