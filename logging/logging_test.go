package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func newLogger(buf *bytes.Buffer) *log.Logger {
	logger := log.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&log.JSONFormatter{})
	logger.AddHook(&contextHook{})
	logger.AddHook(&redactHook{})

	return logger
}

func TestRedactHook(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf)

	logger.WithFields(log.Fields{
		"macaroon_hex": "0201036c6e64",
		"charge_token": "s3cret",
		"order_id":     7,
	}).Info("connecting")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, redacted, entry["macaroon_hex"])
	require.Equal(t, redacted, entry["charge_token"])
	require.EqualValues(t, 7, entry["order_id"])
}

func TestContextHook(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf)

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.WithContext(ctx).Info("traced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, convertTraceID(traceID.String()), entry["dd.trace_id"])
	require.Equal(t, convertTraceID(spanID.String()), entry["dd.span_id"])
	require.NotEmpty(t, entry["dd.trace_id"])
}

func TestConvertTraceID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "short", want: ""},
		{id: "b7ad6b7169203331", want: "13235353014750950193"},
		{id: "0af7651916cd43dd8448eb211c80319c", want: "9532127138774266268"},
		{id: "zzzzzzzzzzzzzzzz", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			require.Equal(t, tt.want, convertTraceID(tt.id))
		})
	}
}
