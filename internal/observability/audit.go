package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Audit emits one structured security event per sensitive action (logins,
// invite changes, credential reveals). Events ride the normal slog pipeline,
// so they reach both stdout and the OTel log exporter.
func Audit(r *http.Request, event string, attrs ...any) {
	fields := make([]any, 0, 10+len(attrs))
	fields = append(fields,
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(r.Context()),
	)
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	fields = append(fields, attrs...)
	slog.InfoContext(r.Context(), "audit", fields...)
}
