// Package logger emits structured JSON log lines to stdout. Every entry
// carries the service name and, when present in the context, the request ID
// so one transcription's steps can be correlated.
package logger

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

type Fields map[string]any

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	RequestID string    `json:"request_id,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Fields    Fields    `json:"fields,omitempty"`
}

type contextKey string

const RequestIDKey contextKey = "request_id"

var serviceName string

func Init(name string) {
	serviceName = name
}

// WithRequestID stores a request ID in the context for later log calls.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func emit(ctx context.Context, level, message string, err error, fields Fields) {
	if serviceName == "" {
		// Init was never called; degrade to the standard logger rather
		// than dropping the line.
		log.Printf("[%s] %s (err=%v)", level, message, err)
		return
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Service:   serviceName,
		Message:   message,
		Fields:    fields,
	}
	if ctx != nil {
		if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
			e.RequestID = requestID
		}
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		log.Printf("log entry not marshalable: %v (message: %s)", marshalErr, message)
		return
	}
	os.Stdout.Write(append(data, '\n'))
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

func Debug(ctx context.Context, message string, fields ...Fields) {
	emit(ctx, "debug", message, nil, first(fields))
}

func Info(ctx context.Context, message string, fields ...Fields) {
	emit(ctx, "info", message, nil, first(fields))
}

// Warn and Error take the causing error explicitly; it lands in its own
// JSON field instead of being formatted into the message.
func Warn(ctx context.Context, message string, err error, fields ...Fields) {
	emit(ctx, "warn", message, err, first(fields))
}

func Error(ctx context.Context, message string, err error, fields ...Fields) {
	emit(ctx, "error", message, err, first(fields))
}
