package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/apis/field"
	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/runtime/sink/console"
)

func newEngineWithBuffer(t *testing.T, minLevel level.Level) (*Engine, *bytes.Buffer, func()) {
	t.Helper()
	var buf bytes.Buffer
	s := console.New(console.Options{Name: "test", Writer: &buf})
	e := New(Options{
		Host:             record.Host{Hostname: "h", PID: 1},
		MinLevel:         minLevel,
		DispatchIdleWait: time.Millisecond,
	})
	require.NoError(t, e.AddSink(s))
	return e, &buf, func() { _ = e.Close(context.Background()) }
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestEngine_LogDeliversToSink(t *testing.T) {
	e, buf, closeFn := newEngineWithBuffer(t, level.Info)
	defer closeFn()

	e.Info(context.Background(), "hello", field.New("a", 1))
	waitFor(t, time.Second, func() bool { return strings.Contains(buf.String(), "hello") })

	var out map[string]any
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	require.Equal(t, "hello", out["msg"])
	require.EqualValues(t, 1, out["a"])
}

func TestEngine_LevelGateSkipsBelowMinimum(t *testing.T) {
	e, buf, closeFn := newEngineWithBuffer(t, level.Warn)
	defer closeFn()

	e.Debug(context.Background(), "should not appear")
	e.Info(context.Background(), "also should not appear")
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, buf.String())
}

func TestEngine_FatalDeliversSynchronously(t *testing.T) {
	e, buf, closeFn := newEngineWithBuffer(t, level.Info)
	defer closeFn()

	e.Fatal(context.Background(), "boom")
	require.Contains(t, buf.String(), "boom")
}

func TestEngine_WithFieldsMergesBoundFields(t *testing.T) {
	e, buf, closeFn := newEngineWithBuffer(t, level.Info)
	defer closeFn()

	child := e.WithFields(field.New("service", "checkout"))
	child.Info(context.Background(), "order placed", field.New("order_id", 42))

	waitFor(t, time.Second, func() bool { return strings.Contains(buf.String(), "order placed") })
	var out map[string]any
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	require.Equal(t, "checkout", out["service"])
	require.EqualValues(t, 42, out["order_id"])
}

func TestEngine_RemoveSinkStopsFurtherDelivery(t *testing.T) {
	e, buf, closeFn := newEngineWithBuffer(t, level.Info)
	defer closeFn()

	require.NoError(t, e.RemoveSink("test"))
	e.Info(context.Background(), "gone")
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, buf.String())
}

func TestEngine_HealthReportsSinkStatus(t *testing.T) {
	e, _, closeFn := newEngineWithBuffer(t, level.Info)
	defer closeFn()

	report := e.Health(context.Background())
	require.Len(t, report.Results, 1)
	require.True(t, report.Results[0].OK())
}

func TestEngine_CloseDrainsPendingRecords(t *testing.T) {
	e, buf, _ := newEngineWithBuffer(t, level.Info)
	for i := 0; i < 50; i++ {
		e.Info(context.Background(), "line")
	}
	require.NoError(t, e.Close(context.Background()))
	require.Equal(t, 50, strings.Count(buf.String(), "line"))
}
