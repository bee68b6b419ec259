package genfix

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLLMLoggerTranscript(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gw := newFakeGateway().on("qc-clarity", passReply)
	ll := NewLLMLogger(gw, "fake", zap.New(core))

	before := testutil.ToFloat64(llmCalls.WithLabelValues("fake", "qc-clarity", "ok"))
	obj, err := ll.Complete(WithPurpose(context.Background(), "qc-clarity"), "is this clear?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if _, ok := obj["score"]; !ok {
		t.Errorf("object = %v", obj)
	}

	entries := logs.All()
	if len(entries) != 2 || entries[0].Message != "LLM request" || entries[1].Message != "LLM response" {
		t.Fatalf("entries = %+v", entries)
	}
	if got := entries[0].ContextMap()["prompt"]; got != "is this clear?" {
		t.Errorf("logged prompt = %v", got)
	}
	if got := entries[1].ContextMap()["purpose"]; got != "qc-clarity" {
		t.Errorf("logged purpose = %v", got)
	}
	if after := testutil.ToFloat64(llmCalls.WithLabelValues("fake", "qc-clarity", "ok")); after != before+1 {
		t.Errorf("call counter %v -> %v", before, after)
	}
}

func TestLLMLoggerFailures(t *testing.T) {
	tests := []struct {
		name    string
		gw      *fakeGateway
		outcome string
		raw     bool
	}{
		{"malformed", newFakeGateway().on("generate", "no json here"), "malformed", true},
		{"transport", newFakeGateway().fail("generate", &GatewayError{Provider: "fake", Wrapped: errors.New("refused")}), "error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			ll := NewLLMLogger(tt.gw, "fake-"+tt.name, zap.New(core))

			_, err := ll.Complete(WithPurpose(context.Background(), "generate"), "write a question")
			if err == nil {
				t.Fatal("expected an error")
			}

			warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
			if len(warnings) != 1 {
				t.Fatalf("warnings = %d, want 1", len(warnings))
			}
			if _, ok := warnings[0].ContextMap()["raw"]; ok != tt.raw {
				t.Errorf("raw reply logged = %v, want %v", ok, tt.raw)
			}
			if got := testutil.ToFloat64(llmCalls.WithLabelValues("fake-"+tt.name, "generate", tt.outcome)); got != 1 {
				t.Errorf("%s outcome counter = %v", tt.outcome, got)
			}
		})
	}
}
