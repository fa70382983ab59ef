// Package ctxutil carries small cross-cutting request-scoped values and
// guards against nil contexts at component boundaries.
package ctxutil

import "context"

// Default returns context.Background() when ctx is nil, so capability
// implementations never need a nil check before calling context.WithTimeout.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type traceKey struct{}

// TraceData identifies one pipeline run for log correlation and tracing.
type TraceData struct {
	JobID     string
	TraceID   string
	PipelineID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceKey{}).(*TraceData)
	return td
}
