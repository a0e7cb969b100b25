package wire

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/apis/value"
)

func baseRecord(entries ...value.MapEntry) *record.Record {
	return &record.Record{
		Time:    time.UnixMilli(1700000000000).UTC(),
		Level:   level.Info,
		Message: "hi",
		Host:    record.Host{Hostname: "H", PID: 123},
		Data:    value.Mapping(entries...),
	}
}

func encodeOne(t *testing.T, s *Serializer, r *record.Record) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Encode(r, &buf))
	line := bytes.TrimRight(buf.Bytes(), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal(line, &out))
	return out
}

func TestEncode_MatchesScenarioShape(t *testing.T) {
	s := New(Options{})
	r := baseRecord(
		value.MapEntry{Key: "a", Value: value.Int64(1)},
		value.MapEntry{Key: "b", Value: value.String("x")},
	)
	out := encodeOne(t, s, r)

	require.EqualValues(t, 30, out["level"])
	require.Equal(t, "info", out["levelLabel"])
	require.EqualValues(t, 1700000000000, out["time"])
	require.Equal(t, "H", out["hostname"])
	require.EqualValues(t, 123, out["pid"])
	require.EqualValues(t, 1, out["a"])
	require.Equal(t, "x", out["b"])
	require.Equal(t, "hi", out["msg"])
	require.NotContains(t, out, "name")
}

func TestEncode_NameOmittedWhenEmptyPresentWhenSet(t *testing.T) {
	s := New(Options{})
	r := baseRecord()
	r.Host.Name = "svc"
	out := encodeOne(t, s, r)
	require.Equal(t, "svc", out["name"])
}

func TestEncode_LargeIntegerBecomesSuffixedString(t *testing.T) {
	s := New(Options{})
	big := int64(1) << 60
	r := baseRecord(value.MapEntry{Key: "big", Value: value.Int64(big)})
	out := encodeOne(t, s, r)
	require.Equal(t, "1152921504606846976n", out["big"])
}

func TestEncode_SmallIntegerStaysNumeric(t *testing.T) {
	s := New(Options{})
	r := baseRecord(value.MapEntry{Key: "n", Value: value.Int64(42)})
	out := encodeOne(t, s, r)
	require.EqualValues(t, 42, out["n"])
}

func TestEncode_NonFiniteFloatBecomesNull(t *testing.T) {
	s := New(Options{})
	r := baseRecord(value.MapEntry{Key: "f", Value: value.Float64(math.NaN())})
	out := encodeOne(t, s, r)
	require.Nil(t, out["f"])
}

func TestEncode_ControlCharactersEscaped(t *testing.T) {
	s := New(Options{})
	var buf bytes.Buffer
	r := baseRecord(value.MapEntry{Key: "s", Value: value.String("a\x01b")})
	require.NoError(t, s.Encode(r, &buf))
	require.Contains(t, buf.String(), `ab`)
}

func TestEncode_BytesAreBase64(t *testing.T) {
	s := New(Options{})
	r := baseRecord(value.MapEntry{Key: "bin", Value: value.Bytes([]byte("hi"))})
	out := encodeOne(t, s, r)
	require.Equal(t, "aGk=", out["bin"])
}

func TestEncode_CircularAndMaxDepthMarkers(t *testing.T) {
	s := New(Options{})
	r := baseRecord(
		value.MapEntry{Key: "c", Value: value.Circular()},
		value.MapEntry{Key: "d", Value: value.MaxDepthExceeded()},
	)
	out := encodeOne(t, s, r)
	require.Equal(t, "[Circular]", out["c"])
	require.Equal(t, "[Max Depth Exceeded]", out["d"])
}

func TestEncode_ErrorShape(t *testing.T) {
	s := New(Options{})
	shape := &value.ErrorShape{Type: "*errors.errorString", Message: "boom"}
	r := baseRecord(value.MapEntry{Key: "err", Value: value.Error(shape)})
	out := encodeOne(t, s, r)
	errOut, ok := out["err"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "boom", errOut["message"])
}

func TestEncode_ISO8601DatePolicy(t *testing.T) {
	s := New(Options{DatePolicy: DateISO8601})
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := baseRecord(value.MapEntry{Key: "t", Value: value.Time(ts)})
	out := encodeOne(t, s, r)
	require.Equal(t, "2024-01-02T03:04:05.000Z", out["t"])
}

func TestEncode_OversizeRecordTruncates(t *testing.T) {
	s := New(Options{MaxBytes: 128})
	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'a'
	}
	r := baseRecord(value.MapEntry{Key: "blob", Value: value.String(string(big))})
	out := encodeOne(t, s, r)
	require.Equal(t, true, out[record.TruncatedMarkerKey])
	require.NotContains(t, out, "blob")
	require.Equal(t, "hi", out["msg"])
}

func TestEncode_ContextFieldsOmittedWhenEmptyIncludedWhenSet(t *testing.T) {
	s := New(Options{})
	r := baseRecord()
	out := encodeOne(t, s, r)
	require.NotContains(t, out, "trace_id")

	r.Ctx.TraceID = "t-1"
	out = encodeOne(t, s, r)
	require.Equal(t, "t-1", out["trace_id"])
}

func TestEncode_KeyCacheStableAcrossCalls(t *testing.T) {
	s := New(Options{KeyCacheSize: 1})
	r1 := baseRecord(value.MapEntry{Key: "one", Value: value.Int64(1)})
	r2 := baseRecord(value.MapEntry{Key: "two", Value: value.Int64(2)})
	out1 := encodeOne(t, s, r1)
	out2 := encodeOne(t, s, r2)
	require.EqualValues(t, 1, out1["one"])
	require.EqualValues(t, 2, out2["two"])
}
