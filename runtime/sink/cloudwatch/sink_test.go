package cloudwatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeJSON(body []byte, v any) error {
	return json.Unmarshal(body, v)
}

func TestNewLogStreamName_MatchesShape(t *testing.T) {
	name := newLogStreamName("host-a", time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC))
	require.Regexp(t, `^host-a-2026-03-04-[0-9a-f]{32}$`, name)
}

func TestBuilderSerialize_SortsEventsByTimestamp(t *testing.T) {
	b := &builder{logGroup: "g", logStream: "s"}
	entries := [][]byte{
		[]byte(`{"time":3000,"msg":"c"}` + "\n"),
		[]byte(`{"time":1000,"msg":"a"}` + "\n"),
		[]byte(`{"time":2000,"msg":"b"}` + "\n"),
	}
	body, contentType, err := b.Serialize(entries)
	require.NoError(t, err)
	require.Equal(t, "application/x-amz-json-1.1", contentType)

	var out putLogEventsInput
	require.NoError(t, decodeJSON(body, &out))
	require.Len(t, out.LogEvents, 3)
	require.Equal(t, int64(1000), out.LogEvents[0].Timestamp)
	require.Equal(t, int64(2000), out.LogEvents[1].Timestamp)
	require.Equal(t, int64(3000), out.LogEvents[2].Timestamp)
}

func TestClassify_InvalidSequenceTokenIsRetriableAndUpdatesToken(t *testing.T) {
	b := &builder{}
	resp := &http.Response{StatusCode: 400}
	body := []byte(`{"__type":"InvalidSequenceTokenException","expectedSequenceToken":"42","message":"bad token"}`)

	err := b.Classify(resp, body)
	require.Error(t, err)

	b.mu.Lock()
	token := b.sequenceToken
	b.mu.Unlock()
	require.NotNil(t, token)
	require.Equal(t, "42", *token)
}

func TestClassify_ThrottlingIsRetriable(t *testing.T) {
	b := &builder{}
	resp := &http.Response{StatusCode: 400}
	body := []byte(`{"__type":"ThrottlingException","message":"slow down"}`)
	require.Error(t, b.Classify(resp, body))
}

func TestClassify_ResourceNotFoundIsNonRetriable(t *testing.T) {
	b := &builder{}
	resp := &http.Response{StatusCode: 400}
	body := []byte(`{"__type":"ResourceNotFoundException","message":"no group"}`)
	err := b.Classify(resp, body)
	require.Error(t, err)
}

func TestConsume_StoresNextSequenceToken(t *testing.T) {
	b := &builder{}
	resp := &http.Response{StatusCode: 200}
	body := []byte(`{"nextSequenceToken":"abc123"}`)
	require.NoError(t, b.Consume(resp, body))

	b.mu.Lock()
	token := b.sequenceToken
	b.mu.Unlock()
	require.Equal(t, "abc123", *token)
}

func TestEnsureLogGroupAndStream_TreatsAlreadyExistsAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"__type":"ResourceAlreadyExistsException","message":"exists"}`))
	}))
	defer srv.Close()

	b := &builder{
		opt:       Options{Region: "us-east-1", EndpointOverride: srv.URL},
		logGroup:  "g",
		logStream: "s",
	}
	err := b.callAction(context.Background(), srv.Client(), "CreateLogGroup", createLogGroupInput{LogGroupName: "g"})
	require.NoError(t, err)
}

func TestEnsureLogGroupAndStream_PropagatesOtherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		_, _ = w.Write([]byte(`{"__type":"AccessDeniedException","message":"nope"}`))
	}))
	defer srv.Close()

	b := &builder{
		opt:       Options{Region: "us-east-1", EndpointOverride: srv.URL},
		logGroup:  "g",
		logStream: "s",
	}
	err := b.callAction(context.Background(), srv.Client(), "CreateLogGroup", createLogGroupInput{LogGroupName: "g"})
	require.Error(t, err)
}
