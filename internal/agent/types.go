// Package agent holds the generative collaborators the engine falls back to
// when its templates have nothing confident to say, plus the NDJSON
// conversation logger.
package agent

import "time"

// Generator kinds accepted by NewGenerator.
const (
	KindNone   = "none"
	KindMock   = "mock"
	KindGrpc   = "grpc"
	KindGemini = "gemini"
	KindAzure  = "azure"
)

// Config selects and configures the primary generator.
type Config struct {
	Kind            string
	Addr            string
	GeminiAPIKey    string
	GeminiModel     string
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	RequestTimeout  time.Duration
}

// DefaultConfig returns a configuration with no remote generator.
func DefaultConfig() Config {
	return Config{
		Kind:           KindNone,
		GeminiModel:    "gemini-2.5-flash",
		RequestTimeout: 4 * time.Second,
	}
}

// maxReplyTokens bounds remote completions; replies are cleaned to two sentences anyway.
const maxReplyTokens = 120
