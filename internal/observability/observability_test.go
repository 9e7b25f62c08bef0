package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.SimulationsRun.WithLabelValues("trades", "success").Inc()
	m.RowsRejected.WithLabelValues("trades", "invalid_number").Add(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["test_analytics_simulations_total"])
	assert.Equal(t, 3.0, values["test_ingestion_rows_rejected_total"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)

	assert.NotNil(t, MustLogger("bogus", "json"))
}

func TestInitTracing(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), "tradeblocks-test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "simulate", attribute.Int("paths", 10))
	EndSpan(span, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.True(t, strings.Contains(out, "simulate"), "span not exported: %s", out)
	assert.Contains(t, out, "boom")
}
