package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/runtime/engine"
	"dirpx.dev/dlog/runtime/sink/console"
)

func waitForContains(t *testing.T, buf *bytes.Buffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), substr) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in: %s", substr, buf.String())
}

func TestNewRootCmd_HasAllSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"run", "tail", "health"}, names)
}

func TestLogLine_PlainTextLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	e := engine.New(engine.Options{MinLevel: level.Trace})
	require.NoError(t, e.AddSink(console.New(console.Options{Name: "test", Writer: &buf})))
	defer e.Close(context.Background())

	logLine(e, "hello world")
	waitForContains(t, &buf, "hello world")
}

func TestLogLine_StructuredJSONUsesMsgAndLevel(t *testing.T) {
	var buf bytes.Buffer
	e := engine.New(engine.Options{MinLevel: level.Trace})
	require.NoError(t, e.AddSink(console.New(console.Options{Name: "test", Writer: &buf})))
	defer e.Close(context.Background())

	logLine(e, `{"level":"warn","msg":"disk low","fields":{"pct":91}}`)
	waitForContains(t, &buf, "disk low")
	require.Contains(t, buf.String(), "91")
}

func TestLogLine_EmptyLineIsNoop(t *testing.T) {
	var buf bytes.Buffer
	e := engine.New(engine.Options{MinLevel: level.Trace})
	require.NoError(t, e.AddSink(console.New(console.Options{Name: "test", Writer: &buf})))
	defer e.Close(context.Background())

	logLine(e, "")
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, buf.String())
}

func TestTrimNewline(t *testing.T) {
	require.Equal(t, "abc", trimNewline("abc\r\n"))
	require.Equal(t, "abc", trimNewline("abc\n"))
	require.Equal(t, "abc", trimNewline("abc"))
}
