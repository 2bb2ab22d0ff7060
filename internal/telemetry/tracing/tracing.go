package tracing

import (
	"go.opentelemetry.io/otel"
)

// GlobalTracer is used for ad-hoc spans around repo and handler calls.
// With no SDK tracer provider configured it is a no-op.
var GlobalTracer = otel.Tracer("bloghaus")
