package rscript

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is this module's named OpenTelemetry tracer.
var tracer = otel.Tracer("github.com/sigmaSd/Rscript")

// TriggerTraced behaves exactly like TriggerHook, except each
// per-endpoint dispatch opens a span carrying the script name, hook
// name, transport kind, a per-call correlation id, and the outcome,
// without changing TriggerHook's laziness: spans are only opened as
// each endpoint is actually dispatched, from inside ResultSeq.Next.
func TriggerTraced[O any](ctx context.Context, m *ScriptManager, hook Hook[O]) *ResultSeq[O] {
	seq := TriggerHook(m, hook)
	seq.ctx = ctx
	return seq
}

func traceDispatch(ctx context.Context, s *Script, hookName string, fn func() error) error {
	id := uuid.New().String()
	_, span := tracer.Start(ctx, "rscript.dispatch", trace.WithAttributes(
		attribute.String("rscript.script", s.info.Name),
		attribute.String("rscript.hook", hookName),
		attribute.String("rscript.transport", s.transport.kind.label()),
		attribute.String("rscript.request_id", id),
	))
	defer span.End()

	err := fn()
	if err != nil {
		span.RecordError(err)
	}
	return err
}
