package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bloh/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingMiddleware_NamesSpansByRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Delete("/api/posts/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusInternalServerError) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health/live", nil),
		httptest.NewRequest(http.MethodGet, "/api/posts/7", nil),
		httptest.NewRequest(http.MethodDelete, "/api/posts/8", nil),
	} {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		if req.URL.Path != "/health/live" {
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
		}
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2, "health probes are not traced")

	assert.Equal(t, "GET /api/posts/:id", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("bloh.resource_id", "7"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "DELETE /api/posts/:id", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
