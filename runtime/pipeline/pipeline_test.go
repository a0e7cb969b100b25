package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/apis/level"
	apipeline "dirpx.dev/dlog/apis/pipeline"
	"dirpx.dev/dlog/apis/pipeline/plugin"
	"dirpx.dev/dlog/apis/pipeline/stage"
	"dirpx.dev/dlog/apis/record"
	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/encoder"
	ajson "dirpx.dev/dlog/runtime/encoder/json"
	"dirpx.dev/dlog/runtime/sink/console"
)

func enabled(b bool) *bool { return &b }

func TestLevelStage_DropsBelowMinimum(t *testing.T) {
	st := NewLevelStage("min_warn", level.Warn)
	require.Equal(t, "min_warn", st.Name())

	_, decision, err := st.Process(context.Background(), record.Record{Level: level.Info})
	require.NoError(t, err)
	require.Equal(t, stage.Drop, decision)

	_, decision, err = st.Process(context.Background(), record.Record{Level: level.Error})
	require.NoError(t, err)
	require.Equal(t, stage.Continue, decision)
}

func TestLevelBuilder_BuildFromSpecConfig(t *testing.T) {
	b := levelBuilder{}
	st, err := b.Build(context.Background(), plugin.Specification{
		Name: "gate", Kind: LevelStageKind,
		Config: map[string]any{"min_level": "error"},
	})
	require.NoError(t, err)

	_, decision, err := st.Process(context.Background(), record.Record{Level: level.Warn})
	require.NoError(t, err)
	require.Equal(t, stage.Drop, decision)
}

func TestRedactBuilder_MasksConfiguredPattern(t *testing.T) {
	b := redactBuilder{}
	st, err := b.Build(context.Background(), plugin.Specification{
		Kind: RedactStageKind,
		Config: map[string]any{
			"rules": []map[string]any{
				{"pattern": `\d{3}-\d{2}-\d{4}`, "mask": "[SSN]"},
			},
		},
	})
	require.NoError(t, err)

	rec := record.Record{Message: "ssn is 123-45-6789"}
	out, decision, err := st.Process(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, stage.Continue, decision)
	require.Contains(t, out.Message, "[SSN]")
	require.NotContains(t, out.Message, "123-45-6789")
}

func TestBuilder_BuildsAndEmitsThroughPipeline(t *testing.T) {
	var buf bytes.Buffer
	sink := console.New(console.Options{Name: "test", Writer: &buf})

	b := NewBuilder(Builders(), map[string]asink.Sink{"test": sink}, ajson.New(encoder.Options{}))

	p, err := b.Build(context.Background(), apipeline.Specification{
		Pre: []plugin.Specification{
			{Kind: LevelStageKind, Enabled: enabled(true), Config: map[string]any{"min_level": "info"}},
		},
		Sinks: []string{"test"},
	})
	require.NoError(t, err)

	require.NoError(t, p.Emit(context.Background(), record.Record{
		Time: time.Now(), Level: level.Info, Message: "hello pipeline",
	}))
	require.NoError(t, p.Emit(context.Background(), record.Record{
		Time: time.Now(), Level: level.Debug, Message: "should be dropped",
	}))
	require.NoError(t, p.Flush(context.Background()))

	require.Contains(t, buf.String(), "hello pipeline")
	require.NotContains(t, buf.String(), "should be dropped")
}

func TestBuilder_UnknownSinkNameFails(t *testing.T) {
	b := NewBuilder(Builders(), map[string]asink.Sink{}, ajson.New(encoder.Options{}))
	_, err := b.Build(context.Background(), apipeline.Specification{Sinks: []string{"missing"}})
	require.Error(t, err)
}

func TestBuilder_UnknownPluginKindFails(t *testing.T) {
	b := NewBuilder(Builders(), map[string]asink.Sink{}, ajson.New(encoder.Options{}))
	_, err := b.Build(context.Background(), apipeline.Specification{
		Pre: []plugin.Specification{{Kind: "does_not_exist"}},
	})
	require.Error(t, err)
}
