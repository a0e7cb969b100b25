package elasticsearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveIndexName_Tokens(t *testing.T) {
	ts := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "dlog-2026.03.04", resolveIndexName("dlog-{YYYY.MM.DD}", ts))
	require.Equal(t, "dlog-2026-03-04", resolveIndexName("dlog-{YYYY}-{MM}-{DD}", ts))
}

func TestBuilderSerialize_EmitsActionAndSourceLines(t *testing.T) {
	b := &builder{opt: Options{IndexPattern: "dlog-{YYYY.MM.DD}"}}
	entry := []byte(`{"time":1772841600000,"id":"abc","msg":"hi"}` + "\n")

	body, contentType, err := b.Serialize([][]byte{entry})
	require.NoError(t, err)
	require.Equal(t, "application/x-ndjson", contentType)
	require.Contains(t, string(body), `"_index":"dlog-2026.03.04"`)
	require.Contains(t, string(body), `"_id":"abc"`)
	require.Contains(t, string(body), `"msg":"hi"`)
}

func TestClassifyBatch_FullSuccess(t *testing.T) {
	b := &builder{}
	resp := fakeResponse(200)
	result, err := b.ClassifyBatch(resp, []byte(`{"errors":false,"items":[]}`), [][]byte{[]byte("a")})
	require.NoError(t, err)
	require.Empty(t, result.Retry)
	require.Zero(t, result.Dropped)
}

func TestClassifyBatch_PartialFailureSeparatesRetriableFromDropped(t *testing.T) {
	b := &builder{}
	body := []byte(`{"errors":true,"items":[
		{"index":{"status":201}},
		{"index":{"status":429,"error":{"type":"es_rejected_execution_exception","reason":"queue full"}}},
		{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}
	]}`)
	entries := [][]byte{[]byte("ok"), []byte("retry-me"), []byte("drop-me")}
	result, err := b.ClassifyBatch(fakeResponse(200), body, entries)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("retry-me")}, result.Retry)
	require.Equal(t, 1, result.Dropped)
}

func TestClassifyBatch_IgnoresItemsPastBatchLength(t *testing.T) {
	b := &builder{}
	body := []byte(`{"errors":true,"items":[
		{"index":{"status":500,"error":{"type":"x","reason":"y"}}},
		{"index":{"status":500,"error":{"type":"x","reason":"y"}}}
	]}`)
	entries := [][]byte{[]byte("only-one")}
	result, err := b.ClassifyBatch(fakeResponse(200), body, entries)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("only-one")}, result.Retry)
}
