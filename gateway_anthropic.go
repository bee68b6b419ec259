package genfix

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGateway completes prompts with the Anthropic Messages API
type AnthropicGateway struct {
	client *anthropic.Client
	config LLMConfig
}

// NewAnthropicGateway reads ANTHROPIC_API_KEY and creates the client
func NewAnthropicGateway(cfg LLMConfig) (*AnthropicGateway, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, &MissingCredentialError{Provider: ProviderAnthropic, EnvVar: "ANTHROPIC_API_KEY"}
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderAnthropic)
	}
	return &AnthropicGateway{client: &client, config: cfg}, nil
}

// Complete sends one message request and decodes the text blocks of the reply
func (g *AnthropicGateway) Complete(ctx context.Context, prompt string) (Object, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.config.Model),
		MaxTokens: int64(g.config.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	// temperature and top_p are mutually exclusive here; a zero temperature
	// hands sampling over to top_p
	if g.config.Temperature == 0 && g.config.TopP > 0 && g.config.TopP < 1 {
		params.TopP = anthropic.Float(g.config.TopP)
	} else {
		params.Temperature = anthropic.Float(g.config.Temperature)
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &GatewayError{Provider: ProviderAnthropic, Wrapped: err}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return decodeObject(text.String())
}
