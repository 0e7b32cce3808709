package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newRecordedSpan 创建带内存导出器的span，结束后可读取记录结果
func newRecordedSpan(t *testing.T) (trace.Span, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "test-span")
	return span, recorder
}

func attributeValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestRecordErrorSetsTypeAndStatus(t *testing.T) {
	span, recorder := newRecordedSpan(t)

	RecordError(span, errors.New("connection refused"), ErrorTypeRedis)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	got := spans[0]
	assert.Equal(t, codes.Error, got.Status().Code, "span状态应为错误")
	assert.Equal(t, "connection refused", got.Status().Description)

	errType, ok := attributeValue(got.Attributes(), "error.type")
	require.True(t, ok)
	assert.Equal(t, "redis", errType)
	require.Len(t, got.Events(), 1, "应记录一个错误事件")
}

func TestRecordErrorIgnoresNil(t *testing.T) {
	span, recorder := newRecordedSpan(t)

	RecordError(span, nil, ErrorTypeDB)
	RecordError(nil, errors.New("x"), ErrorTypeDB)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code, "nil错误不应改变span状态")
	assert.Empty(t, spans[0].Events())
}

func TestRecordErrorWithInfoAddsExtraAttributes(t *testing.T) {
	span, recorder := newRecordedSpan(t)

	RecordErrorWithInfo(span, errors.New("llm调用失败"), ErrorTypeLLM,
		attribute.Int("resume.text_length", 1234))
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)

	length, ok := attributeValue(got.Attributes(), "resume.text_length")
	require.True(t, ok, "额外属性应写入span")
	assert.Equal(t, "1234", length)
}

func TestRecordHTTPErrorCategorizesStatusCode(t *testing.T) {
	span, recorder := newRecordedSpan(t)
	RecordHTTPError(span, errors.New("bad input"), 413)
	span.End()

	got := recorder.Ended()[0]
	category, ok := attributeValue(got.Attributes(), "error.category")
	require.True(t, ok)
	assert.Equal(t, "client_error", category, "4xx应归类为客户端错误")

	span2, recorder2 := newRecordedSpan(t)
	RecordHTTPError(span2, errors.New("boom"), 502)
	span2.End()

	got2 := recorder2.Ended()[0]
	category2, _ := attributeValue(got2.Attributes(), "error.category")
	assert.Equal(t, "server_error", category2, "5xx应归类为服务端错误")
}

func TestRecordRabbitMQNack(t *testing.T) {
	span, recorder := newRecordedSpan(t)
	RecordRabbitMQNack(span, "submission-uuid-1", "broker unavailable")
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "broker unavailable", got.Status().Description)

	msgID, ok := attributeValue(got.Attributes(), "messaging.message_id")
	require.True(t, ok)
	assert.Equal(t, "submission-uuid-1", msgID)

	errType, _ := attributeValue(got.Attributes(), "messaging.error_type")
	assert.Equal(t, "nack", errType)
}
