package azuremonitor

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConnectionString_ExplicitEndpoint(t *testing.T) {
	cs, err := ParseConnectionString("InstrumentationKey=abc-123;IngestionEndpoint=https://custom.example.com/")
	require.NoError(t, err)
	require.Equal(t, "abc-123", cs.InstrumentationKey)
	require.Equal(t, "https://custom.example.com", cs.IngestionEndpoint)
}

func TestParseConnectionString_DefaultsEndpointWhenAbsent(t *testing.T) {
	cs, err := ParseConnectionString("InstrumentationKey=abc-123")
	require.NoError(t, err)
	require.Equal(t, defaultIngestionEndpoint, cs.IngestionEndpoint)
}

func TestParseConnectionString_RequiresInstrumentationKey(t *testing.T) {
	_, err := ParseConnectionString("IngestionEndpoint=https://x")
	require.Error(t, err)
}

func TestInferTelemetryType(t *testing.T) {
	require.Equal(t, "Request", inferTelemetryType(map[string]any{"url": "/a", "response_code": 200.0}))
	require.Equal(t, "RemoteDependency", inferTelemetryType(map[string]any{"dependency_type": "SQL"}))
	require.Equal(t, "Metric", inferTelemetryType(map[string]any{"metric_name": "queue_depth", "value": 3.0}))
	require.Equal(t, "Exception", inferTelemetryType(map[string]any{"exception": "boom"}))
	require.Equal(t, "Message", inferTelemetryType(map[string]any{"order_id": 42.0}))
}

func TestBuilderSerialize_ProducesGzippedNDJSON(t *testing.T) {
	b := &builder{opt: Options{Connection: ConnectionString{InstrumentationKey: "ikey"}}}
	entries := [][]byte{
		[]byte(`{"time":1700000000000,"msg":"hi","order_id":1}` + "\n"),
	}
	body, contentType, err := b.Serialize(entries)
	require.NoError(t, err)
	require.Equal(t, "application/x-json-stream", contentType)

	gz, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	var env map[string]any
	lines := bytes.Split(bytes.TrimRight(raw, "\n"), []byte("\n"))
	require.Len(t, lines, 1)
	require.NoError(t, json.Unmarshal(lines[0], &env))
	require.Equal(t, "Microsoft.ApplicationInsights.ikey.Message", env["name"])
	require.Equal(t, "ikey", env["iKey"])
	data, ok := env["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "MessageData", data["baseType"])
}
