package genfix

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LLMLogger wraps a Gateway and records every request and response.
// Transcripts are logged at debug level; failures at warn.
type LLMLogger struct {
	next     Gateway
	provider string
	logger   *zap.Logger
}

// NewLLMLogger decorates next with transcript logging and call metrics
func NewLLMLogger(next Gateway, provider string, logger *zap.Logger) *LLMLogger {
	return &LLMLogger{
		next:     next,
		provider: provider,
		logger:   orNop(logger).Named("llm"),
	}
}

// Complete forwards to the wrapped gateway
func (ll *LLMLogger) Complete(ctx context.Context, prompt string) (Object, error) {
	purpose := PurposeFrom(ctx)
	ll.logger.Debug("LLM request",
		zap.String("provider", ll.provider),
		zap.String("purpose", purpose),
		zap.String("prompt", prompt),
	)

	start := time.Now()
	obj, err := ll.next.Complete(ctx, prompt)
	elapsed := time.Since(start)

	llmCalls.WithLabelValues(ll.provider, purpose, callOutcome(err)).Inc()
	llmCallDuration.WithLabelValues(ll.provider, purpose).Observe(elapsed.Seconds())

	if err != nil {
		fields := []zap.Field{
			zap.String("provider", ll.provider),
			zap.String("purpose", purpose),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		}
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			fields = append(fields, zap.String("raw", malformed.Raw))
		}
		ll.logger.Warn("LLM call failed", fields...)
		return nil, err
	}

	ll.logger.Debug("LLM response",
		zap.String("provider", ll.provider),
		zap.String("purpose", purpose),
		zap.Duration("elapsed", elapsed),
		zap.Any("response", obj),
	)
	return obj, nil
}
