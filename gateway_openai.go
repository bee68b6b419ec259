package genfix

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGateway completes prompts with the OpenAI chat completions API in JSON mode
type OpenAIGateway struct {
	client *openai.Client
	config LLMConfig
}

// NewOpenAIGateway reads OPENAI_API_KEY and creates the client. A BaseURL in
// cfg points the client at any OpenAI-compatible endpoint.
func NewOpenAIGateway(cfg LLMConfig) (*OpenAIGateway, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, &MissingCredentialError{Provider: ProviderOpenAI, EnvVar: "OPENAI_API_KEY"}
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return newOpenAIGatewayWithClient(openai.NewClientWithConfig(clientConfig), cfg), nil
}

func newOpenAIGatewayWithClient(client *openai.Client, cfg LLMConfig) *OpenAIGateway {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderOpenAI)
	}
	return &OpenAIGateway{client: client, config: cfg}
}

// Complete sends one chat completion request and decodes the reply
func (g *OpenAIGateway) Complete(ctx context.Context, prompt string) (Object, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemInstruction,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:        g.config.MaxTokens,
			Temperature:      float32(g.config.Temperature),
			TopP:             float32(g.config.TopP),
			PresencePenalty:  float32(g.config.PresencePenalty),
			FrequencyPenalty: float32(g.config.FrequencyPenalty),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, &GatewayError{Provider: ProviderOpenAI, Wrapped: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &GatewayError{Provider: ProviderOpenAI, Wrapped: errors.New("no choices in response")}
	}

	return decodeObject(resp.Choices[0].Message.Content)
}
