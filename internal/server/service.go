package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The extraction service is defined over well-known types only: the request
// is the raw document as google.protobuf.BytesValue with the file name in
// request metadata, and the response is the draft as google.protobuf.Struct.
const (
	ServiceName        = "labs.v1.ExtractionService"
	ExtractFullMethod  = "/labs.v1.ExtractionService/Extract"
	FileNameMetadata   = "x-file-name"
	RequestIDMetadata  = "x-request-id"
	retryAfterMetadata = "retry-after"
)

// ExtractionServer is the server API for labs.v1.ExtractionService.
type ExtractionServer interface {
	Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExtractFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Extract",
			Handler:    extractHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "labs/v1/extraction.proto",
}
