package middleware

import (
	"fmt"
	"strings"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const localsErrorCode = "errorCode"

// MarkError records the application error code answered for this request.
// The tracing span carries it as inkwell.error.code.
func MarkError(c *fiber.Ctx, code string) {
	c.Locals(localsErrorCode, code)
}

// TracingMiddleware opens a server span per request and exposes the trace
// id to the logger and the X-Trace-ID response header. Once the handler
// chain has run the span is renamed after the matched route and annotated
// with its parameters (post, comment, user id or category slug), the
// caller's session and the error code the handler answered with.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.url", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route()
		span.SetName(c.Method() + " " + route.Path)
		status := c.Response().StatusCode()
		span.SetAttributes(
			attribute.String("http.route", route.Path),
			attribute.Int("http.status_code", status),
			attribute.Bool("inkwell.admin", isAdminPath(route.Path)),
		)
		for _, name := range route.Params {
			if v := c.Params(name); v != "" {
				span.SetAttributes(attribute.String("inkwell.route."+name, v))
			}
		}
		if sess := SessionFrom(c); sess.Authenticated() {
			span.SetAttributes(
				attribute.Int64("enduser.id", int64(sess.UserID)),
				attribute.String("enduser.role", string(sess.Role)),
			)
		}
		if code, ok := c.Locals(localsErrorCode).(string); ok && code != "" {
			span.SetAttributes(attribute.String("inkwell.error.code", code))
		}
		if status == fiber.StatusFound {
			span.SetAttributes(attribute.String("http.redirect", string(c.Response().Header.Peek(fiber.HeaderLocation))))
		}

		if err != nil {
			span.RecordError(err)
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		return err
	}
}

func isAdminPath(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}
