package filters

import (
	"github.com/getkayan/authproc/domain"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for filter execution.
const (
	AttrFilterName = "authproc.filter.name"
	AttrClientID   = "authproc.client.id"
	AttrContinue   = "authproc.filter.continue"
)

// Traced decorates a filter with an OpenTelemetry span per execution.
type Traced struct {
	next   Filter
	tracer trace.Tracer
}

func NewTraced(next Filter, tracer trace.Tracer) *Traced {
	return &Traced{next: next, tracer: tracer}
}

func (t *Traced) Name() string { return t.next.Name() }

func (t *Traced) Process(c echo.Context, params *domain.FilterContext) (bool, error) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrFilterName, t.next.Name()),
	}
	if params.HasClient() {
		attrs = append(attrs, attribute.String(AttrClientID, params.Client().ID))
	}

	ctx, span := t.tracer.Start(c.Request().Context(), "authproc.filter",
		trace.WithAttributes(attrs...))
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))
	cont, err := t.next.Process(c, params)

	span.SetAttributes(attribute.Bool(AttrContinue, cont))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return cont, err
}
