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

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dirpx.dev/dlog/apis"
	"dirpx.dev/dlog/apis/field"
	"dirpx.dev/dlog/apis/health"
	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/apis/value"
	"dirpx.dev/dlog/runtime/buffer"
	"dirpx.dev/dlog/runtime/internal/diag"
)

// Engine is dlog's top-level Logger and sink fan-out dispatcher.
//
// Concurrency model:
//   - Log (and its Debug/Info/... shorthands) only gate the level, extract
//     context, convert fields and push the resulting record onto a ring
//     buffer (runtime/buffer.Ring). This is the hot, concurrent-producer path.
//   - A single dispatcher goroutine drains the ring, encodes each record
//     once, and fans the encoded bytes out to every currently registered
//     sink. This keeps encoder and sink state off the producer's critical
//     path and matches the "single in-flight batch" shape sinks expect.
//   - FATAL bypasses the ring: Log synchronously and best-effort delivers
//     the record to every sink before returning, per the FATAL contract.
type Engine struct {
	opt  Options
	ring *buffer.Ring[record.Record]

	mu    sync.RWMutex
	sinks map[string]asink.Sink

	closed   atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	dropped  atomic.Int64
	enqueued atomic.Int64
}

var (
	_ apis.Logger        = (*Engine)(nil)
	_ apis.FieldLogger   = (*Engine)(nil)
	_ apis.ContextLogger = (*Engine)(nil)
)

// New constructs an Engine and starts its dispatcher goroutine.
func New(opt Options) *Engine {
	opt.applyDefaults()
	e := &Engine{
		opt:    opt,
		ring:   buffer.New[record.Record](opt.Buffer),
		sinks:  make(map[string]asink.Sink),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go e.dispatchLoop()
	return e
}

// Enabled reports whether lvl would actually be logged, letting callers
// skip expensive field construction ahead of time.
func (e *Engine) Enabled(lvl level.Level) bool {
	return lvl >= e.opt.MinLevel
}

func (e *Engine) Debug(ctx context.Context, msg string, fields ...field.Field) {
	e.Log(ctx, level.Debug, msg, fields...)
}
func (e *Engine) Info(ctx context.Context, msg string, fields ...field.Field) {
	e.Log(ctx, level.Info, msg, fields...)
}
func (e *Engine) Warn(ctx context.Context, msg string, fields ...field.Field) {
	e.Log(ctx, level.Warn, msg, fields...)
}
func (e *Engine) Error(ctx context.Context, msg string, fields ...field.Field) {
	e.Log(ctx, level.Error, msg, fields...)
}
func (e *Engine) Fatal(ctx context.Context, msg string, fields ...field.Field) {
	e.Log(ctx, level.Fatal, msg, fields...)
}

// Log builds a record from msg/fields and either enqueues it (Trace..Error)
// or, for Fatal, drains it to every sink synchronously before returning.
func (e *Engine) Log(ctx context.Context, lvl level.Level, msg string, fields ...field.Field) {
	if !e.Enabled(lvl) {
		return
	}
	rec := e.buildRecord(ctx, lvl, msg, fields)

	if lvl == level.Fatal {
		e.drainOne(rec)
		return
	}

	if e.closed.Load() {
		return
	}
	if e.ring.Write(rec) {
		e.enqueued.Add(1)
	} else {
		e.dropped.Add(1)
	}
}

func (e *Engine) buildRecord(ctx context.Context, lvl level.Level, msg string, fields []field.Field) record.Record {
	pack := e.opt.Extractor.Extract(ctx)
	entries := make([]value.MapEntry, 0, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		v, ok := value.FromAny(f.Value)
		if !ok {
			continue
		}
		entries = append(entries, value.MapEntry{Key: f.Key, Value: v})
	}
	rec := record.Record{
		Time:    time.Now(),
		Level:   lvl,
		Message: msg,
		Host:    e.opt.Host,
		Ctx:     pack,
		Fields:  fields,
		Data:    value.Mapping(entries...),
	}
	if e.opt.Redactor != nil {
		rec = e.opt.Redactor.Redact(rec)
	}
	return rec
}

// WithFields returns a derived Logger that always includes the given
// fields in addition to any passed at the call site.
func (e *Engine) WithFields(fields ...field.Field) apis.Logger {
	return &derived{engine: e, fields: append([]field.Field(nil), fields...)}
}

// WithContext returns a derived Logger that uses ctx as the base context
// for every subsequent call unless a different context is supplied.
func (e *Engine) WithContext(ctx context.Context) apis.Logger {
	return &derived{engine: e, ctx: ctx}
}

// AddSink registers s under its own Name(). Re-adding the same name
// replaces the previous sink; the caller is responsible for closing the
// replaced sink if that is desired.
func (e *Engine) AddSink(s asink.Sink) error {
	if s == nil {
		return fmt.Errorf("engine: nil sink")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks[s.Name()] = s
	return nil
}

// RemoveSink unregisters the sink with the given name. It does not close
// the sink; callers that want delivery guarantees should Flush/Close it
// themselves first.
func (e *Engine) RemoveSink(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sinks[name]; !ok {
		return fmt.Errorf("engine: sink %q not found", name)
	}
	delete(e.sinks, name)
	return nil
}

// Flush asks every registered sink to flush its buffered entries. Errors
// from individual sinks are collected and returned jointly; a failure on
// one sink does not stop Flush from calling the rest.
func (e *Engine) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range e.snapshotSinks() {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting new records, drains whatever remains in the ring
// (bounded by opt.ShutdownTimeout), flushes and closes every sink, and
// stops the dispatcher goroutine.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed.Swap(true) {
		return nil
	}
	close(e.stopCh)

	select {
	case <-e.doneCh:
	case <-time.After(e.opt.ShutdownTimeout):
	case <-ctx.Done():
	}

	var errs []error
	for _, s := range e.snapshotSinks() {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Health aggregates every sink's Healthy()/Stats() into a single report.
func (e *Engine) Health(ctx context.Context) health.Report {
	agg := health.NewAggregator()
	for _, s := range e.snapshotSinks() {
		s := s
		agg.Add(s.Name(), health.CheckFunc(func(context.Context) (health.Result, error) {
			status := health.StatusHealthy
			if !s.Healthy() {
				status = health.StatusUnhealthy
			}
			return health.Result{Status: status, Details: s.Stats()}, nil
		}))
	}
	return agg.Run(ctx)
}

func (e *Engine) snapshotSinks() []asink.Sink {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]asink.Sink, 0, len(e.sinks))
	names := make([]string, 0, len(e.sinks))
	for name := range e.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, e.sinks[name])
	}
	return out
}

// dispatchLoop is the sole reader of the ring buffer; it owns the encoder
// and writes encoded batches to every sink.
func (e *Engine) dispatchLoop() {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			e.drainRemaining()
			return
		default:
		}

		batch := e.ring.ReadBatch(e.opt.DispatchBatchSize)
		if len(batch) == 0 {
			select {
			case <-e.stopCh:
				e.drainRemaining()
				return
			case <-time.After(e.opt.DispatchIdleWait):
			}
			continue
		}
		e.dispatchBatch(batch)
	}
}

// drainRemaining flushes whatever is left in the ring after stop has been
// signaled, best-effort and non-blocking beyond the records already queued.
func (e *Engine) drainRemaining() {
	for {
		batch := e.ring.ReadBatch(e.opt.DispatchBatchSize)
		if len(batch) == 0 {
			return
		}
		e.dispatchBatch(batch)
	}
}

func (e *Engine) dispatchBatch(batch []record.Record) {
	entries := make([][]byte, 0, len(batch))
	for i := range batch {
		b, err := e.encode(&batch[i])
		if err != nil {
			diag.Error("engine", fmt.Errorf("encode: %w", err))
			continue
		}
		entries = append(entries, b)
	}
	if len(entries) == 0 {
		return
	}
	ctx := context.Background()
	for _, s := range e.snapshotSinks() {
		if !s.Healthy() {
			continue
		}
		if err := s.WriteBatch(ctx, entries); err != nil {
			diag.Error("engine", fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
}

// drainOne synchronously, best-effort delivers a single record (the FATAL
// path) to every sink without going through the ring or dispatcher.
func (e *Engine) drainOne(rec record.Record) {
	b, err := e.encode(&rec)
	if err != nil {
		diag.Error("engine", fmt.Errorf("encode fatal: %w", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opt.ShutdownTimeout)
	defer cancel()
	for _, s := range e.snapshotSinks() {
		if err := s.Write(ctx, b); err != nil {
			diag.Error("engine", fmt.Errorf("fatal write %s: %w", s.Name(), err))
		}
	}
}

func (e *Engine) encode(rec *record.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.opt.Encoder.Encode(rec, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// derived is a lightweight Logger view bound to extra fields and/or a
// fixed context, delegating the actual work back to the owning Engine.
type derived struct {
	engine *Engine
	fields []field.Field
	ctx    context.Context
}

var (
	_ apis.Logger        = (*derived)(nil)
	_ apis.FieldLogger   = (*derived)(nil)
	_ apis.ContextLogger = (*derived)(nil)
)

func (d *derived) Enabled(lvl level.Level) bool { return d.engine.Enabled(lvl) }

func (d *derived) baseCtx(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

func (d *derived) Log(ctx context.Context, lvl level.Level, msg string, fields ...field.Field) {
	merged := append(append([]field.Field(nil), d.fields...), fields...)
	d.engine.Log(d.baseCtx(ctx), lvl, msg, merged...)
}

func (d *derived) Debug(ctx context.Context, msg string, fields ...field.Field) {
	d.Log(ctx, level.Debug, msg, fields...)
}
func (d *derived) Info(ctx context.Context, msg string, fields ...field.Field) {
	d.Log(ctx, level.Info, msg, fields...)
}
func (d *derived) Warn(ctx context.Context, msg string, fields ...field.Field) {
	d.Log(ctx, level.Warn, msg, fields...)
}
func (d *derived) Error(ctx context.Context, msg string, fields ...field.Field) {
	d.Log(ctx, level.Error, msg, fields...)
}
func (d *derived) Fatal(ctx context.Context, msg string, fields ...field.Field) {
	d.Log(ctx, level.Fatal, msg, fields...)
}

func (d *derived) WithFields(fields ...field.Field) apis.Logger {
	return &derived{engine: d.engine, fields: append(append([]field.Field(nil), d.fields...), fields...), ctx: d.ctx}
}

func (d *derived) WithContext(ctx context.Context) apis.Logger {
	return &derived{engine: d.engine, fields: d.fields, ctx: ctx}
}
