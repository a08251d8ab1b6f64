package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// Generator service wire names. Requests and replies are google.protobuf.Struct
// documents so no generated stubs are needed on either side.
const (
	GeneratorServiceName = "boothsim.generator.v1.Generator"
	generateMethod       = "/" + GeneratorServiceName + "/Generate"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errEmptyReply               = errors.New("generator returned no text")
	errNotServing               = errors.New("generator is not serving")
)

// GrpcGenerator calls a remote generator service.
type GrpcGenerator struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	addr   string
	logger *slog.Logger
}

// GrpcClientConfig holds configuration for the gRPC client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGrpcGenerator connects to the generator service and waits until it is ready.
func NewGrpcGenerator(cfg GrpcClientConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultGrpcClientConfig()
	if cfg.Address == "" {
		cfg.Address = def.Address
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = def.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create generator client for %s: %w", cfg.Address, err)
	}

	// Force a connection attempt during startup so we fail fast on bad endpoints.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("generator at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("connected to generator service", "address", cfg.Address)
	return &GrpcGenerator{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		addr:   cfg.Address,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Name implements response.Generator.
func (g *GrpcGenerator) Name() string {
	return "grpc:" + g.addr
}

// Close closes the gRPC connection.
func (g *GrpcGenerator) Close() error {
	if g.conn == nil {
		return nil
	}
	if err := g.conn.Close(); err != nil {
		return fmt.Errorf("close generator connection: %w", err)
	}
	return nil
}

// Health checks the standard gRPC health service for the generator.
func (g *GrpcGenerator) Health(ctx context.Context) error {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: GeneratorServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errNotServing, resp.GetStatus())
	}
	return nil
}

// Generate implements response.Generator.
func (g *GrpcGenerator) Generate(ctx context.Context, req response.Request) (string, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return "", err
	}
	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		g.logger.Debug("generator call failed", "session_id", req.SessionID, "error", err)
		return "", fmt.Errorf("generate: %w", err)
	}
	text := out.GetFields()["text"].GetStringValue()
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}

func encodeRequest(req response.Request) (*structpb.Struct, error) {
	history := make([]any, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, map[string]any{
			"role": string(m.Type),
			"text": m.Text,
		})
	}
	s, err := structpb.NewStruct(map[string]any{
		"session_id": req.SessionID,
		"seed":       req.Seed,
		"system":     req.System,
		"message":    req.Message,
		"phase":      string(req.Phase),
		"persona": map[string]any{
			"key":  req.Persona.Key,
			"name": req.Persona.Name,
			"role": req.Persona.Role,
		},
		"history":    history,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}
	return s, nil
}

func decodeRequest(s *structpb.Struct) response.Request {
	f := s.GetFields()
	req := response.Request{
		SessionID: f["session_id"].GetStringValue(),
		Seed:      f["seed"].GetStringValue(),
		System:    f["system"].GetStringValue(),
		Message:   f["message"].GetStringValue(),
		Phase:     domain.Phase(f["phase"].GetStringValue()),
	}
	persona := f["persona"].GetStructValue().GetFields()
	req.Persona = domain.Persona{
		Key:  persona["key"].GetStringValue(),
		Name: persona["name"].GetStringValue(),
		Role: persona["role"].GetStringValue(),
	}
	for _, v := range f["history"].GetListValue().GetValues() {
		entry := v.GetStructValue().GetFields()
		req.History = append(req.History, domain.Message{
			Type: domain.MessageType(entry["role"].GetStringValue()),
			Text: entry["text"].GetStringValue(),
		})
	}
	return req
}
