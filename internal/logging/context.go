package logging

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type workflowCtxKey struct{}
type agentCtxKey struct{}

// WithWorkflowID attaches a workflow id to the context for log correlation.
func WithWorkflowID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workflowCtxKey{}, id)
}

// WorkflowIDFromContext extracts the workflow id, or 0 when absent.
func WorkflowIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(workflowCtxKey{}).(int); ok {
		return id
	}
	return 0
}

// WithAgent attaches the active agent name to the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentCtxKey{}, agent)
}

// AgentFromContext extracts the active agent name, or "".
func AgentFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(agentCtxKey{}).(string); ok {
		return a
	}
	return ""
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := WorkflowIDFromContext(ctx); id != 0 {
		fields = append(fields, zap.Int("workflow.id", id))
	}
	if agent := AgentFromContext(ctx); agent != "" {
		fields = append(fields, zap.String("workflow.agent", agent))
	}

	return fields
}

// Context-aware logging methods

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Debug(msg, append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Info(msg, append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Warn(msg, append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Error(msg, append(ContextFields(ctx), fields...)...)
}

func stdout() *os.File {
	return os.Stdout
}
