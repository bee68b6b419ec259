package genfix

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitedGateway(t *testing.T) {
	gw := newFakeGateway().on("qc-format", passReply)
	limited := NewRateLimitedGateway(gw, "fake", 1)
	ctx := WithPurpose(context.Background(), "qc-format")

	if _, err := limited.Complete(ctx, "first"); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	// the second token is a minute away
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := limited.Complete(short, "second")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("error = %v, want gateway error", err)
	}
	if gw.count("qc-format") != 1 {
		t.Errorf("calls = %d, want 1", gw.count("qc-format"))
	}
}

func TestNewGatewayRateLimited(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.Provider = ProviderOllama
	cfg.RequestsPerMinute = 30

	gw, err := NewGateway(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	ll, ok := gw.(*LLMLogger)
	if !ok {
		t.Fatalf("gateway is %T", gw)
	}
	if _, ok := ll.next.(*RateLimitedGateway); !ok {
		t.Errorf("wrapped gateway is %T, want *RateLimitedGateway", ll.next)
	}
}
