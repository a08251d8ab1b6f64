package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/boothsim/internal/response"
	"google.golang.org/genai"
)

var errMissingGeminiKey = errors.New("gemini api key is required")

// GeminiGenerator asks a Gemini model to speak as the attendee.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a Gemini API client.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errMissingGeminiKey
	}
	if model == "" {
		model = DefaultConfig().GeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Name implements response.Generator.
func (g *GeminiGenerator) Name() string {
	return "gemini:" + g.model
}

// Generate implements response.Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req response.Request) (string, error) {
	turns := chatTurns(req)
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.fromAttendee {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.text, role))
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: maxReplyTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
