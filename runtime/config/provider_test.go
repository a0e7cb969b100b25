package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/apis/value"
	"dirpx.dev/dlog/runtime/encoder"
	ajson "dirpx.dev/dlog/runtime/encoder/json"
	"dirpx.dev/dlog/runtime/sink/console"
)

func TestSpecification_ProjectsLevelAndSinkNames(t *testing.T) {
	cfg := &Config{
		Output: Output{Level: "warn"},
		Sinks:  []SinkConfig{{Name: "stdout", Kind: "console"}},
	}
	spec, err := cfg.Specification()
	require.NoError(t, err)
	require.NotNil(t, spec.MinLevel)
	require.Equal(t, level.Warn, *spec.MinLevel)
	require.Equal(t, []string{"stdout"}, spec.Sinks)
	require.Nil(t, spec.Pipeline)
}

func TestSpecification_MaskingEnabledBuildsRedactPlugin(t *testing.T) {
	cfg := &Config{
		Output: Output{Level: "info"},
		Security: Security{PIIMasking: PIIMasking{
			Enabled: true,
			Rules:   []Rule{{Pattern: `secret-\d+`, Mask: "[X]"}},
		}},
	}
	spec, err := cfg.Specification()
	require.NoError(t, err)
	require.NotNil(t, spec.Pipeline)
	require.Len(t, spec.Pipeline.Pre, 1)
	require.Equal(t, "redact", spec.Pipeline.Pre[0].Kind)
}

func TestResolve_MergesOverDefaults(t *testing.T) {
	cfg := &Config{Output: Output{Level: "error"}}
	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	require.NotNil(t, resolved.MinLevel)
	require.Equal(t, level.Error, *resolved.MinLevel)
}

func TestBuildPipeline_WithMaskingEmitsRedactedRecordToSink(t *testing.T) {
	var buf bytes.Buffer
	sink := console.New(console.Options{Name: "stdout", Writer: &buf})

	cfg := &Config{
		Output: Output{Level: "info"},
		Sinks:  []SinkConfig{{Name: "stdout", Kind: "console"}},
		Security: Security{PIIMasking: PIIMasking{
			Enabled: true,
			Rules:   []Rule{{Pattern: `secret-\d+`, Mask: "[X]"}},
		}},
	}

	p, err := cfg.BuildPipeline(context.Background(), map[string]asink.Sink{"stdout": sink}, ajson.New(encoder.Options{}))
	require.NoError(t, err)

	rec := record.Record{
		Message: "token issued",
		Data:    value.Mapping(value.MapEntry{Key: "token", Value: value.String("secret-123")}),
	}
	require.NoError(t, p.Emit(context.Background(), rec))
	require.NoError(t, p.Flush(context.Background()))

	require.Contains(t, buf.String(), "[X]")
	require.NotContains(t, buf.String(), "secret-123")
}
