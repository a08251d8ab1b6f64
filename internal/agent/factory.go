package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/boothsim/internal/response"
)

// NewGenerator builds the primary generator selected by cfg. It returns a nil
// generator for KindNone so the engine degrades straight to mock and canned
// replies.
func NewGenerator(ctx context.Context, cfg Config, logger *slog.Logger) (response.Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindMock:
		return NewMockGenerator(), nil
	case KindGrpc:
		gcfg := DefaultGrpcClientConfig()
		if cfg.Addr != "" {
			gcfg.Address = cfg.Addr
		}
		if cfg.RequestTimeout > 0 {
			gcfg.ConnectTimeout = cfg.RequestTimeout
		}
		return NewGrpcGenerator(gcfg, logger)
	case KindGemini:
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case KindAzure:
		return NewAzureGenerator(cfg.AzureEndpoint, cfg.AzureKey, cfg.AzureDeployment)
	default:
		return nil, fmt.Errorf("unknown generator kind %q", cfg.Kind)
	}
}
