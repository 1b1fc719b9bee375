package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"
)

type ctxKey struct{}

type traceKey struct{}

// CloudLoggingHandler is a slog.Handler that writes records in the Google
// Cloud structured logging format.
type CloudLoggingHandler struct {
	out   io.Writer
	attrs []slog.Attr
}

// NewCloudLoggingHandler creates a handler writing to stdout, where the
// Cloud Logging agent picks entries up.
func NewCloudLoggingHandler() *CloudLoggingHandler {
	return &CloudLoggingHandler{out: os.Stdout}
}

// NewCloudLoggingHandlerTo creates a handler writing to w.
func NewCloudLoggingHandlerTo(w io.Writer) *CloudLoggingHandler {
	return &CloudLoggingHandler{out: w}
}

// Handle processes log records.
func (h *CloudLoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := map[string]any{
		"severity": r.Level.String(),
		"time":     time.Now().Format(time.RFC3339),
		"message":  r.Message,
	}

	if traceID := TraceIDFromContext(ctx); traceID != "" {
		entry["logging.googleapis.com/trace"] = traceID
	}

	for _, attr := range h.attrs {
		entry[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		entry[attr.Key] = attr.Value.Any()
		return true
	})

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := h.out.Write(jsonData); err != nil {
		return err
	}
	_, err = h.out.Write([]byte("\n"))
	return err
}

// Enabled always returns true, so all log levels are handled.
func (h *CloudLoggingHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs returns a new handler with additional attributes.
func (h *CloudLoggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &CloudLoggingHandler{out: h.out, attrs: newAttrs}
}

// WithGroup returns the same handler, as grouping is not implemented.
func (h *CloudLoggingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// WithTraceID attaches a Cloud Trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFromContext extracts the Cloud Trace ID, if any.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(NewCloudLoggingHandler())
}
