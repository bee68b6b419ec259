package genfix

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaGateway completes prompts against a local Ollama server in JSON mode
type OllamaGateway struct {
	llm    llms.Model
	config LLMConfig
}

// NewOllamaGateway connects to cfg.BaseURL (default localhost). No credential is needed.
// An empty model falls back to DefaultModel(ProviderOllama).
func NewOllamaGateway(cfg LLMConfig) (*OllamaGateway, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderOllama)
	}
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	llm, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(serverURL),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ollama client: %v", ErrConfiguration, err)
	}
	return &OllamaGateway{llm: llm, config: cfg}, nil
}

// Complete sends the system instruction and prompt and decodes the reply
func (g *OllamaGateway) Complete(ctx context.Context, prompt string) (Object, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemInstruction),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens),
		llms.WithTopP(g.config.TopP),
		llms.WithPresencePenalty(g.config.PresencePenalty),
		llms.WithFrequencyPenalty(g.config.FrequencyPenalty),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, &GatewayError{Provider: ProviderOllama, Wrapped: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &GatewayError{Provider: ProviderOllama, Wrapped: errors.New("no choices in response")}
	}

	return decodeObject(resp.Choices[0].Content)
}
