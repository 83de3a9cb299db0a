package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsBlankStrings(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", ""),
		attribute.String("http.method", "GET"),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	wrapped := errors.New("outer")
	assert.Equal(t, "outer", SafeError(wrapped).Error())
}

func TestDisabledProviderStillCreatesSpans(t *testing.T) {
	tp, err := NewProvider(nil, Config{SamplingRatio: 1}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := Start(context.Background(), "test", "op", attribute.String("k", "v"))
	assert.True(t, span.SpanContext().IsValid())
	End(span, errors.New("boom"))
	assert.NotNil(t, ctx)
}
