package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/inventory-engine/pkg/config"
)

func TestSetup_SinEndpointNoExporta(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OtelConfig{ServiceName: "test"}, "test")

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
