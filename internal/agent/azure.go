package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/ashureev/boothsim/internal/response"
)

var errMissingAzureConfig = errors.New("azure endpoint, key and deployment are required")

// AzureGenerator asks an Azure OpenAI chat deployment to speak as the attendee.
type AzureGenerator struct {
	client     *azopenai.Client
	deployment string
}

// NewAzureGenerator builds a key-authenticated Azure OpenAI client.
func NewAzureGenerator(endpoint, key, deployment string) (*AzureGenerator, error) {
	if endpoint == "" || key == "" || deployment == "" {
		return nil, errMissingAzureConfig
	}
	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(key), nil)
	if err != nil {
		return nil, fmt.Errorf("create azure openai client: %w", err)
	}
	return &AzureGenerator{client: client, deployment: deployment}, nil
}

// Name implements response.Generator.
func (g *AzureGenerator) Name() string {
	return "azure:" + g.deployment
}

// Generate implements response.Generator.
func (g *AzureGenerator) Generate(ctx context.Context, req response.Request) (string, error) {
	resp, err := g.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(g.deployment),
		Messages:       azureMessages(req),
		MaxTokens:      to.Ptr(int32(maxReplyTokens)),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("azure chat completion: %w", err)
	}
	for _, choice := range resp.Choices {
		if choice.Message == nil || choice.Message.Content == nil {
			continue
		}
		if text := strings.TrimSpace(*choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errEmptyReply
}

func azureMessages(req response.Request) []azopenai.ChatRequestMessageClassification {
	turns := chatTurns(req)
	msgs := make([]azopenai.ChatRequestMessageClassification, 0, len(turns)+1)
	if req.System != "" {
		msgs = append(msgs, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(req.System),
		})
	}
	for _, t := range turns {
		if t.fromAttendee {
			msgs = append(msgs, &azopenai.ChatRequestAssistantMessage{
				Content: azopenai.NewChatRequestAssistantMessageContent(t.text),
			})
			continue
		}
		msgs = append(msgs, &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(t.text),
		})
	}
	return msgs
}
