package log

import (
	"context"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware puts logger in the request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request logger, or one over slog's default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return ForComponent(ComponentApp)
}

// RequestIDMiddleware adds the request id to the context logger. It must
// run after the middleware that assigns the id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger logs ledger operations with consistent fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogLedgerWrite records a committed ledger write.
func (sl *StructuredLogger) LogLedgerWrite(ctx context.Context, op string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Ledger write committed", fields.WithOperation(op).ToSlice()...)
}

// LogError logs err under component and op.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, op string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(op)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, all.ToSlice()...)
}
