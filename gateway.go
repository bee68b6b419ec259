package genfix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Object is a single decoded JSON object returned by a completion call
type Object map[string]json.RawMessage

// Gateway sends a rendered prompt to a completion endpoint and returns the
// reply decoded as one JSON object. It is the only place the pipeline
// performs I/O against the model.
type Gateway interface {
	Complete(ctx context.Context, prompt string) (Object, error)
}

type purposeKey struct{}

// WithPurpose tags the context with what a completion call is for
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose set by WithPurpose, or "unknown"
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeKey{}).(string); ok && p != "" {
		return p
	}
	return "unknown"
}

// NewGateway builds the gateway for cfg.Provider, wrapped in an LLMLogger
// and, when cfg.RequestsPerMinute is set, a RateLimitedGateway.
// Provider credentials are read from the environment here.
func NewGateway(cfg LLMConfig, logger *zap.Logger) (Gateway, error) {
	var (
		gw  Gateway
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		gw, err = NewOpenAIGateway(cfg)
	case ProviderAnthropic:
		gw, err = NewAnthropicGateway(cfg)
	case ProviderOllama:
		gw, err = NewOllamaGateway(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider %q", ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	if cfg.RequestsPerMinute > 0 {
		gw = NewRateLimitedGateway(gw, provider, cfg.RequestsPerMinute)
	}
	return NewLLMLogger(gw, provider, logger), nil
}

// decodeObject parses reply text as exactly one JSON object. A surrounding
// markdown code fence is tolerated.
func decodeObject(text string) (Object, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, &MalformedResponseError{Raw: text, Wrapped: errors.New("empty reply")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, &MalformedResponseError{Raw: text, Wrapped: err}
	}
	if obj == nil {
		return nil, &MalformedResponseError{Raw: text, Wrapped: errors.New("reply is null")}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, &MalformedResponseError{Raw: text, Wrapped: errors.New("trailing data after JSON object")}
	}
	return obj, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
