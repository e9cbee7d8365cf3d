package interceptors

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrCache/contextx"
	"github.com/Keksclan/goRawrCache/invocation"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var buf bytes.Buffer
	ic := RequestID(zerolog.New(&buf))
	call := invocation.NewCall(invocation.NewMethod("users.Service", "Get"), "")

	var id string
	_, err := ic(t.Context(), call, func(ctx context.Context, _ *invocation.Call) (any, error) {
		id = contextx.RequestIDFromContext(ctx)
		zerolog.Ctx(ctx).Info().Msg("inside")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated request ID")
	}
	if !bytes.Contains(buf.Bytes(), []byte(id)) {
		t.Fatalf("expected log line to carry %q, got %s", id, buf.String())
	}
}

func TestRequestID_KeepsExisting(t *testing.T) {
	ic := RequestID(zerolog.Nop())
	call := invocation.NewCall(invocation.NewMethod("users.Service", "Get"), "")
	ctx := contextx.WithRequestID(t.Context(), "req-1")

	var id string
	_, _ = ic(ctx, call, func(ctx context.Context, _ *invocation.Call) (any, error) {
		id = contextx.RequestIDFromContext(ctx)
		return nil, nil
	})
	if id != "req-1" {
		t.Fatalf("expected %q, got %q", "req-1", id)
	}
}
