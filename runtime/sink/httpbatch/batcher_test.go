package httpbatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dirpx.dev/dlog/runtime/sinkerr"
)

// fakeBuilder is a minimal RequestBuilder for exercising Batcher in
// isolation from any real cloud API.
type fakeBuilder struct {
	status       atomic.Int32 // HTTP status the fake server returns
	signErr      error
	serializeErr error
	consumed     atomic.Int64
}

func (f *fakeBuilder) Serialize(entries [][]byte) ([]byte, string, error) {
	if f.serializeErr != nil {
		return nil, "", f.serializeErr
	}
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
		body = append(body, '\n')
	}
	return body, "application/x-ndjson", nil
}

func (f *fakeBuilder) Sign(ctx context.Context, req *http.Request, body []byte) error {
	return f.signErr
}

func (f *fakeBuilder) Classify(resp *http.Response, respBody []byte) error {
	return sinkerr.ClassifyHTTPStatus(resp.StatusCode, string(respBody))
}

func (f *fakeBuilder) Consume(resp *http.Response, respBody []byte) error {
	f.consumed.Add(1)
	return nil
}

func newTestServer(t *testing.T, status func() int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status())
	}))
}

func TestBatcher_FlushesOnBatchSize(t *testing.T) {
	var st atomic.Int32
	st.Store(200)
	srv := newTestServer(t, func() int { return int(st.Load()) })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:        http.MethodPost,
		URL:           srv.URL,
		Builder:       builder,
		BatchSize:     5,
		BatchInterval: time.Hour,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Write(context.Background(), []byte(`{"a":1}`)))
	}

	require.Eventually(t, func() bool {
		return b.sent.Load() == 5
	}, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, builder.consumed.Load())
}

func TestBatcher_FlushesOnInterval(t *testing.T) {
	var st atomic.Int32
	st.Store(200)
	srv := newTestServer(t, func() int { return int(st.Load()) })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:        http.MethodPost,
		URL:           srv.URL,
		Builder:       builder,
		BatchSize:     1000,
		BatchInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.NoError(t, b.Write(context.Background(), []byte(`{"a":1}`)))

	require.Eventually(t, func() bool {
		return b.sent.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBatcher_RetriableFailureRequeuesAndBackoffs(t *testing.T) {
	var st atomic.Int32
	st.Store(503)
	srv := newTestServer(t, func() int { return int(st.Load()) })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:              http.MethodPost,
		URL:                 srv.URL,
		Builder:             builder,
		BatchSize:           2,
		BatchInterval:       5 * time.Millisecond,
		RetryInitialBackoff: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.NoError(t, b.WriteBatch(context.Background(), [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)}))

	require.Eventually(t, func() bool {
		return b.dropped.Load() == 0 && b.Stats()["backoff_attempt"].(int) > 0
	}, time.Second, 5*time.Millisecond)

	st.Store(200)
	require.Eventually(t, func() bool {
		return b.sent.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBatcher_SustainedFailureExhaustsRetriesAndDropsBatch(t *testing.T) {
	srv := newTestServer(t, func() int { return 503 })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:              http.MethodPost,
		URL:                 srv.URL,
		Builder:             builder,
		BatchSize:           2,
		BatchInterval:       5 * time.Millisecond,
		RetryInitialBackoff: 2 * time.Millisecond,
		RetryMaxBackoff:     10 * time.Millisecond,
		MaxRetries:          3,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.NoError(t, b.WriteBatch(context.Background(), [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)}))

	require.Eventually(t, func() bool {
		return !b.Healthy()
	}, 2*time.Second, 5*time.Millisecond)

	require.EqualValues(t, 2, b.dropped.Load())
	require.EqualValues(t, 0, b.sent.Load())
	require.Contains(t, b.lastErr.Load().(string), "dropped_batch")
}

func TestBatcher_NonRetriableFailureDropsAndCounts(t *testing.T) {
	var st atomic.Int32
	st.Store(400)
	srv := newTestServer(t, func() int { return int(st.Load()) })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:        http.MethodPost,
		URL:           srv.URL,
		Builder:       builder,
		BatchSize:     1,
		BatchInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.NoError(t, b.Write(context.Background(), []byte(`{"a":1}`)))

	require.Eventually(t, func() bool {
		return b.dropped.Load() == 1
	}, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 0, b.sent.Load())
}

func TestBatcher_QueueCapOverflowDropsExcess(t *testing.T) {
	srv := newTestServer(t, func() int { return 200 })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:        http.MethodPost,
		URL:           srv.URL,
		Builder:       builder,
		BatchSize:     10,
		BatchInterval: time.Hour,
		QueueCapacity: 3,
	})
	require.NoError(t, err)
	defer b.Close(context.Background())

	entries := make([][]byte, 5)
	for i := range entries {
		entries[i] = []byte(`{"a":1}`)
	}
	require.NoError(t, b.WriteBatch(context.Background(), entries))
	require.EqualValues(t, 2, b.dropped.Load())
}

func TestBatcher_CloseDrainsPendingBestEffort(t *testing.T) {
	srv := newTestServer(t, func() int { return 200 })
	defer srv.Close()

	builder := &fakeBuilder{}
	b, err := New(Options{
		Method:        http.MethodPost,
		URL:           srv.URL,
		Builder:       builder,
		BatchSize:     100,
		BatchInterval: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, b.Write(context.Background(), []byte(`{"a":1}`)))
	require.NoError(t, b.Close(context.Background()))
	require.EqualValues(t, 1, b.sent.Load())
}

func TestBatcher_HealthyUntilMarkedDead(t *testing.T) {
	srv := newTestServer(t, func() int { return 200 })
	defer srv.Close()

	b, err := New(Options{Method: http.MethodPost, URL: srv.URL, Builder: &fakeBuilder{}})
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.True(t, b.Healthy())
	b.MarkDead(context.DeadlineExceeded)
	require.False(t, b.Healthy())
}
