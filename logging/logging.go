// Package logging configures the global logrus logger from the environment.
// Import it with the blank identifier from the binary's main package.
package logging

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Fields whose values never reach the log output.
var secretFields = []string{"macaroon", "token", "secret", "password"}

const redacted = "[REDACTED]"

func init() {
	log.AddHook(&contextHook{})
	log.AddHook(&redactHook{})

	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Fatal(err)
	}

	log.SetLevel(level)
	log.SetFormatter(formatterFromEnv())

	if log.StandardLogger().GetLevel() == log.DebugLevel {
		log.SetReportCaller(true)
	}
}

// formatterFromEnv returns a new formatter based on LOG_FORMAT.
func formatterFromEnv() log.Formatter {
	if os.Getenv("LOG_FORMAT") == "json" {
		return &log.JSONFormatter{}
	}

	return &log.TextFormatter{FullTimestamp: true}
}

// contextHook copies the trace and span ids of the entry's context, using
// the Datadog field names.
type contextHook struct{}

func (hook *contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *contextHook) Fire(entry *log.Entry) error {
	if entry.Context == nil {
		return nil
	}

	span := trace.SpanFromContext(entry.Context).SpanContext()
	if span.IsValid() {
		entry.Data["dd.trace_id"] = convertTraceID(span.TraceID().String())
		entry.Data["dd.span_id"] = convertTraceID(span.SpanID().String())
	}

	return nil
}

// redactHook masks credentials passed as log fields.
type redactHook struct{}

func (h *redactHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *redactHook) Fire(entry *log.Entry) error {
	for key := range entry.Data {
		if isSecret(key) {
			entry.Data[key] = redacted
		}
	}

	return nil
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretFields {
		if strings.Contains(key, s) {
			return true
		}
	}

	return false
}

// https://docs.datadoghq.com/tracing/other_telemetry/connect_logs_and_traces/opentelemetry?tab=go
func convertTraceID(id string) string {
	if len(id) < 16 {
		return ""
	}
	if len(id) > 16 {
		id = id[16:]
	}
	intValue, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return ""
	}

	return strconv.FormatUint(intValue, 10)
}
