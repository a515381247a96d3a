package tracing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/use-agent/ytsearch/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := initWithWriter(config.TracingConfig{Enabled: true, ServiceName: "ytsearch-test"}, &buf)
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "search.navigate")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "search.navigate")
	assert.Contains(t, buf.String(), "ytsearch-test")
}

func TestInit_FileKeepsStdoutForLogs(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	path := filepath.Join(t.TempDir(), "spans.json")
	shutdown, err := Init(config.TracingConfig{Enabled: true, ServiceName: "ytsearch-test", File: path})
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "search.evaluate")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "search.evaluate")
}
