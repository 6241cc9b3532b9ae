package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jhoicas/inventory-engine/internal/interfaces/http"

// HeaderTraceID cabecera de respuesta con el trace_id de la petición.
const HeaderTraceID = "X-Trace-Id"

// Tracing abre un span por petición a partir de traceparent (si viene) y lo deja en el
// UserContext. Los eventos publicados por la petición heredan la traza.
func Tracing() fiber.Handler {
	tracer := otel.Tracer(tracerName)
	return func(c *fiber.Ctx) error {
		carrier := propagation.MapCarrier{}
		c.Request().Header.VisitAll(func(k, v []byte) {
			carrier.Set(strings.ToLower(string(k)), string(v))
		})
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
			),
		)
		defer span.End()
		c.SetUserContext(ctx)

		if sc := span.SpanContext(); sc.IsValid() {
			c.Set(HeaderTraceID, sc.TraceID().String())
		}
		err := c.Next()
		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "error")
		}
		return err
	}
}
