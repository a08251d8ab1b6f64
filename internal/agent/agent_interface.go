package agent

import (
	"io"

	"github.com/ashureev/boothsim/internal/response"
)

// Ensure every collaborator satisfies the engine's generator contract.
var (
	_ response.Generator = (*GrpcGenerator)(nil)
	_ response.Generator = (*GeminiGenerator)(nil)
	_ response.Generator = (*AzureGenerator)(nil)
	_ response.Generator = (*MockGenerator)(nil)
	_ io.Closer          = (*GrpcGenerator)(nil)
)
