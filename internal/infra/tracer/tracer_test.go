package tracer

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"parley/internal/infra/config"
)

func TestSetupInstallsNoopProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracerConfig
	}{
		{"disabled", config.TracerConfig{Enabled: false, Exporter: "stdout"}},
		{"noop exporter", config.TracerConfig{Enabled: true, Exporter: "noop"}},
		{"empty exporter", config.TracerConfig{Enabled: true, Exporter: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Setup: %v", err)
			}
			defer shutdown(context.Background())

			if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
				t.Errorf("provider = %T, want noop", otel.GetTracerProvider())
			}
		})
	}
}

func TestSetupStdoutExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "jaeger"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestSpanHelpers(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	ctx, span := StartSpan(context.Background(), "turn")
	if ctx == nil {
		t.Fatal("nil context")
	}
	RecordError(span, errors.New("branch failed"))
	SetOK(span)
	span.End()

	if got := StringAttr("intent.type", "casual_chat"); string(got.Key) != "intent.type" {
		t.Errorf("StringAttr key = %q", got.Key)
	}
	if got := IntAttr("task.subtasks", 3); got.Value.AsInt64() != 3 {
		t.Errorf("IntAttr value = %v", got.Value)
	}
}
