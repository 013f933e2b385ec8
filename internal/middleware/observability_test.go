package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesnap-api/internal/observability"
)

func TestObservabilityCountsAPIRequests(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.Nop()))
	app.Get("/api/v1/probe/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusTeapot) })
	app.Get("/metrics-probe", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	observability.RegisterMetrics()
	before := probeCount(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/probe/9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics-probe", nil))
	require.NoError(t, err)

	require.Equal(t, before+1, probeCount(t))
}

func probeCount(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "codesnap_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["route"] == "/api/v1/probe/:id" && labels["status"] == "418" {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
