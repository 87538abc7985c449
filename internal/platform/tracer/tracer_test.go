package tracer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"sigil/internal/platform/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, "test.span",
		tracer.String("key", "value"),
		tracer.Bool("flag", true),
	)

	// Context should be returned unchanged
	assert.Equal(t, ctx, newCtx)
	// Span should not be nil
	require.NotNil(t, span)

	// Span methods should not panic
	span.SetAttributes(tracer.String("another", "attr"))
	span.AddEvent("test.event", tracer.Int64("count", 42))
	span.End(nil)
}

func TestNoopTracer_SpanEndWithError(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	_, span := tr.Start(ctx, "test.span")
	require.NotNil(t, span)

	// Should not panic when ending with error
	span.End(errors.New("test error"))
}

func TestOTelTracer_Start(t *testing.T) {
	tr := tracer.NewOTel()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, "test.span",
		tracer.String("key", "value"),
		tracer.Int64("count", 7),
	)

	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool("flag", true))
	span.AddEvent("test.event")
	span.End(nil)
}

func TestOTelTracer_SpanEndWithError(t *testing.T) {
	tr := tracer.NewOTel()

	_, span := tr.Start(context.Background(), "test.span")
	require.NotNil(t, span)

	span.End(errors.New("test error"))
}

func TestOTelTracer_WithInjectedTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(otel.Tracer("injected")))

	_, span := tr.Start(context.Background(), "test.span")
	require.NotNil(t, span)
	span.End(nil)
}

func TestAttributeConstructors(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		attr := tracer.String("key", "value")
		assert.Equal(t, "key", attr.Key)
		assert.Equal(t, "value", attr.Value)
	})

	t.Run("Bool", func(t *testing.T) {
		attr := tracer.Bool("flag", true)
		assert.Equal(t, "flag", attr.Key)
		assert.Equal(t, true, attr.Value)
	})

	t.Run("Int64", func(t *testing.T) {
		attr := tracer.Int64("count", 42)
		assert.Equal(t, "count", attr.Key)
		assert.Equal(t, int64(42), attr.Value)
	})

	t.Run("Duration", func(t *testing.T) {
		attr := tracer.Duration("latency", 150*1e6) // 150ms in nanoseconds
		assert.Equal(t, "latency", attr.Key)
		assert.Equal(t, int64(150), attr.Value)
	})
}

func TestSpanConstants(t *testing.T) {
	assert.Equal(t, "attestation.create", tracer.SpanAttestationCreate)
	assert.Equal(t, "attestation.verify", tracer.SpanAttestationVerify)
	assert.Equal(t, "credential.issue", tracer.SpanCredentialIssue)
	assert.Equal(t, "credential.verify", tracer.SpanCredentialVerify)
	assert.Equal(t, "token.issue", tracer.SpanTokenIssue)
	assert.Equal(t, "token.revoke", tracer.SpanTokenRevoke)
	assert.Equal(t, "token.verify", tracer.SpanTokenVerify)
}

func TestAttributeConstants(t *testing.T) {
	assert.Equal(t, "subject_id", tracer.AttrSubjectID)
	assert.Equal(t, "credential_type", tracer.AttrCredentialType)
	assert.Equal(t, "revoked", tracer.AttrRevoked)
	assert.Equal(t, "valid", tracer.AttrValid)
}
