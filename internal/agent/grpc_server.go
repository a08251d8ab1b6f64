package agent

import (
	"context"
	"fmt"

	"github.com/ashureev/boothsim/internal/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// GenerateServer is the server side of the generator service.
type GenerateServer interface {
	Generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var generatorServiceDesc = grpc.ServiceDesc{
	ServiceName: GeneratorServiceName,
	HandlerType: (*GenerateServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Generate",
			Handler:    generateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boothsim/generator/v1/generator.proto",
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GenerateServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GenerateServer).Generate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterGenerateServer registers srv and a SERVING health status on s.
func RegisterGenerateServer(s *grpc.Server, srv GenerateServer) {
	s.RegisterService(&generatorServiceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(GeneratorServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
}

// GeneratorServer exposes any response.Generator over gRPC.
type GeneratorServer struct {
	gen response.Generator
}

// NewGeneratorServer wraps gen.
func NewGeneratorServer(gen response.Generator) *GeneratorServer {
	return &GeneratorServer{gen: gen}
}

// Generate implements GenerateServer.
func (s *GeneratorServer) Generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	text, err := s.gen.Generate(ctx, decodeRequest(in))
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", s.gen.Name(), err)
	}
	return structpb.NewStruct(map[string]any{"text": text})
}
