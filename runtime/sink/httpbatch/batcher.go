/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package httpbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/internal/diag"
	"dirpx.dev/dlog/runtime/sinkerr"
)

// ErrClosed is returned by Write/WriteBatch/Flush once the batcher has been
// closed.
var ErrClosed = errors.New("httpbatch: sink closed")

// Batcher is the generic HTTP batching sink described by spec §4.6. Concrete
// cloud sinks (Elasticsearch, CloudWatch, Stackdriver, Azure Monitor) embed
// one, supplying only a RequestBuilder.
type Batcher struct {
	opt Options

	mu             sync.Mutex
	pending        [][]byte
	nextSendAfter  time.Time
	backoffAttempt int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	inFlight atomic.Bool
	closed   atomic.Bool
	dead     atomic.Bool

	sent    atomic.Int64
	dropped atomic.Int64
	lastErr atomic.Value // string
}

var _ asink.Sink = (*Batcher)(nil)

// New constructs and starts a Batcher. The returned sink is immediately live:
// Write/WriteBatch may be called right away.
func New(opt Options) (*Batcher, error) {
	if opt.Builder == nil {
		return nil, errors.New("httpbatch: Builder is required")
	}
	if opt.URL == "" {
		return nil, errors.New("httpbatch: URL is required")
	}
	opt.applyDefaults()
	b := &Batcher{
		opt:  opt,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.loop()
	return b, nil
}

func (b *Batcher) Name() string {
	if b.opt.Name != "" {
		return b.opt.Name
	}
	return "httpbatch"
}

func (b *Batcher) Write(ctx context.Context, entry []byte) error {
	return b.WriteBatch(ctx, [][]byte{entry})
}

func (b *Batcher) WriteBatch(ctx context.Context, entries [][]byte) error {
	if b.closed.Load() {
		b.dropped.Add(int64(len(entries)))
		return ErrClosed
	}
	b.mu.Lock()
	capacity := b.opt.QueueCapacity - len(b.pending)
	accept := len(entries)
	if capacity < accept {
		accept = capacity
	}
	if accept < 0 {
		accept = 0
	}
	if accept > 0 {
		b.pending = append(b.pending, entries[:accept]...)
	}
	overflow := len(entries) - accept
	shouldWake := len(b.pending) >= b.opt.BatchSize
	b.mu.Unlock()

	if overflow > 0 {
		b.dropped.Add(int64(overflow))
	}
	if shouldWake {
		b.signalWake()
	}
	return nil
}

func (b *Batcher) signalWake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Batcher) Flush(ctx context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	for {
		b.mu.Lock()
		empty := len(b.pending) == 0
		b.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b.trySend()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (b *Batcher) Close(ctx context.Context) error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.stop)
	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// MarkDead permanently marks the sink unhealthy. Concrete sinks call this
// when a builder hook reports a failure class no amount of retrying can fix
// (e.g. an authentication error that keeps repeating).
func (b *Batcher) MarkDead(reason error) {
	b.dead.Store(true)
	if reason != nil {
		b.lastErr.Store(reason.Error())
	}
}

func (b *Batcher) Healthy() bool {
	return !b.closed.Load() && !b.dead.Load()
}

func (b *Batcher) Stats() map[string]any {
	b.mu.Lock()
	depth := len(b.pending)
	attempt := b.backoffAttempt
	b.mu.Unlock()
	lastErr := ""
	if v, ok := b.lastErr.Load().(string); ok {
		lastErr = v
	}
	return map[string]any{
		"queue_depth":     depth,
		"queue_cap":       b.opt.QueueCapacity,
		"in_flight":       b.inFlight.Load(),
		"backoff_attempt": attempt,
		"sent":            b.sent.Load(),
		"dropped":         b.dropped.Load(),
		"dead":            b.dead.Load(),
		"closed":          b.closed.Load(),
		"last_error":      lastErr,
	}
}

func (b *Batcher) loop() {
	defer close(b.done)
	ticker := time.NewTicker(b.opt.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			b.drainOnClose()
			return
		case <-ticker.C:
			b.trySend()
		case <-b.wake:
			b.trySend()
		}
	}
}

// drainOnClose makes a bounded number of best-effort send attempts so a
// final partial batch isn't silently lost on Close, without blocking
// shutdown forever on a dead destination.
func (b *Batcher) drainOnClose() {
	deadline := time.Now().Add(b.opt.Client.Timeout + 2*time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		empty := len(b.pending) == 0
		b.mu.Unlock()
		if empty {
			return
		}
		b.trySend()
		time.Sleep(10 * time.Millisecond)
	}
}

// trySend is the single-in-flight gate: at most one send runs at a time,
// per spec §4.6 ("a send is never issued while another is in flight").
func (b *Batcher) trySend() {
	if !b.inFlight.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	if time.Now().Before(b.nextSendAfter) || len(b.pending) == 0 {
		b.mu.Unlock()
		b.inFlight.Store(false)
		return
	}
	n := len(b.pending)
	if n > b.opt.BatchSize {
		n = b.opt.BatchSize
	}
	batch := b.pending[:n]
	b.pending = b.pending[n:]
	b.mu.Unlock()

	go b.send(batch)
}

func (b *Batcher) send(batch [][]byte) {
	defer b.inFlight.Store(false)
	b.sendSplit(context.Background(), batch)
}

// sendSplit bisects a batch whose serialized body exceeds MaxBodyBytes,
// per spec §4.6's "requests whose body exceeds the sink's per-batch byte
// cap are split".
func (b *Batcher) sendSplit(ctx context.Context, entries [][]byte) {
	body, contentType, err := b.opt.Builder.Serialize(entries)
	if err != nil {
		b.dropped.Add(int64(len(entries)))
		b.lastErr.Store(err.Error())
		diag.Error("httpbatch", fmt.Errorf("serialize: %w", err))
		return
	}
	if len(body) > b.opt.MaxBodyBytes && len(entries) > 1 {
		mid := len(entries) / 2
		b.sendSplit(ctx, entries[:mid])
		b.sendSplit(ctx, entries[mid:])
		return
	}
	b.doSend(ctx, entries, body, contentType)
}

func (b *Batcher) doSend(ctx context.Context, entries [][]byte, body []byte, contentType string) {
	req, err := http.NewRequestWithContext(ctx, b.opt.Method, b.opt.URL, bytes.NewReader(body))
	if err != nil {
		b.handleFailure(entries, sinkerr.NonRetriable(err))
		return
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if err := b.opt.Builder.Sign(ctx, req, body); err != nil {
		b.handleFailure(entries, sinkerr.NonRetriable(fmt.Errorf("sign: %w", err)))
		return
	}

	resp, err := b.opt.Client.Do(req)
	if err != nil {
		b.handleFailure(entries, sinkerr.ClassifyNetworkError(err))
		return
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if pc, ok := b.opt.Builder.(PartialClassifier); ok {
		b.handlePartial(pc, resp, respBody, entries)
		return
	}

	if cerr := b.opt.Builder.Classify(resp, respBody); cerr != nil {
		b.handleFailure(entries, cerr)
		return
	}

	b.sent.Add(int64(len(entries)))
	b.resetBackoff()
	if cerr := b.opt.Builder.Consume(resp, respBody); cerr != nil {
		diag.Warn("httpbatch", "consume hook failed after successful send: "+cerr.Error())
	}
}

// handlePartial resolves a bulk-style response where individual entries in
// the batch may have succeeded or failed independently of one another.
func (b *Batcher) handlePartial(pc PartialClassifier, resp *http.Response, respBody []byte, entries [][]byte) {
	result, err := pc.ClassifyBatch(resp, respBody, entries)
	if err != nil {
		b.handleFailure(entries, err)
		return
	}

	succeeded := len(entries) - len(result.Retry) - result.Dropped
	if succeeded > 0 {
		b.sent.Add(int64(succeeded))
	}
	if result.Dropped > 0 {
		b.dropped.Add(int64(result.Dropped))
	}
	if len(result.Retry) > 0 {
		b.requeue(result.Retry)
	} else {
		b.resetBackoff()
	}
	if cerr := b.opt.Builder.Consume(resp, respBody); cerr != nil {
		diag.Warn("httpbatch", "consume hook failed after partial send: "+cerr.Error())
	}
}

func (b *Batcher) handleFailure(entries [][]byte, err error) {
	if err != nil {
		b.lastErr.Store(err.Error())
	}
	if !sinkerr.IsRetriable(err) {
		b.dropped.Add(int64(len(entries)))
		diag.Error("httpbatch", err)
		return
	}
	b.requeue(entries)
}

// requeue re-enqueues up to MaxRequeuePerFailure entries at the head of the
// pending queue (so they are retried before newer entries), dropping and
// counting the rest, and schedules the next send attempt after an
// exponentially growing backoff, per spec §4.6. Once this batch's
// consecutive retriable failures reach MaxRetries, it is dropped outright
// instead, and the sink is marked dead: retries are bounded, not infinite.
func (b *Batcher) requeue(entries [][]byte) {
	b.mu.Lock()
	attempt := b.backoffAttempt
	if attempt+1 >= b.opt.MaxRetries {
		b.backoffAttempt = 0
		b.nextSendAfter = time.Time{}
		b.mu.Unlock()
		b.dropExhausted(entries)
		return
	}

	capacity := b.opt.QueueCapacity - len(b.pending)
	if capacity < 0 {
		capacity = 0
	}
	n := len(entries)
	if n > b.opt.MaxRequeuePerFailure {
		n = b.opt.MaxRequeuePerFailure
	}
	if n > capacity {
		n = capacity
	}
	if n > 0 {
		b.pending = append(append([][]byte{}, entries[:n]...), b.pending...)
	}
	dropped := len(entries) - n

	b.backoffAttempt = attempt + 1
	b.nextSendAfter = time.Now().Add(backoffDelay(attempt, b.opt.RetryInitialBackoff, b.opt.RetryMaxBackoff))
	b.mu.Unlock()

	if dropped > 0 {
		b.dropped.Add(int64(dropped))
	}
}

// dropExhausted drops every entry of a batch whose consecutive retriable
// failures reached MaxRetries, surfaces exactly one structured
// dropped_batch error, and marks the sink dead per spec §4.5's state
// machine ("retries exhausted" transitions a sink to Dead).
func (b *Batcher) dropExhausted(entries [][]byte) {
	b.dropped.Add(int64(len(entries)))
	lastErr := ""
	if v, ok := b.lastErr.Load().(string); ok {
		lastErr = v
	}
	err := sinkerr.DroppedBatch(len(entries), errors.New(lastErr))
	diag.Error("httpbatch", err)
	b.MarkDead(err)
}

func (b *Batcher) resetBackoff() {
	b.mu.Lock()
	b.backoffAttempt = 0
	b.nextSendAfter = time.Time{}
	b.mu.Unlock()
}

func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}
