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
	"time"

	acontext "dirpx.dev/dlog/apis/context"
	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/runtime/buffer"
	"dirpx.dev/dlog/runtime/encoder"
	"dirpx.dev/dlog/runtime/encoder/wire"
	"dirpx.dev/dlog/runtime/redact"
)

// Options configures an Engine.
type Options struct {
	// Host is the once-per-process identity stamped on every record.
	Host record.Host

	// Extractor builds the per-call context.Pack from a context.Context.
	// Defaults to acontext.Static(acontext.Empty()) when nil.
	Extractor acontext.Extractor

	// MinLevel gates Log before any field is converted. Defaults to Trace
	// (everything enabled) when left at its zero value only if
	// explicitly set via WithMinLevel; the zero value of level.Level is
	// level.Trace already, so no special-casing is required.
	MinLevel level.Level

	// Buffer configures the ring buffer between producers and the
	// dispatcher goroutine.
	Buffer buffer.Options

	// Redactor, when non-nil, is applied to every record before encoding.
	Redactor *redact.Redactor

	// Encoder turns a record into wire bytes for every sink. Defaults to
	// wire.New(wire.Options{}) when nil.
	Encoder encoder.Encoder

	// DispatchBatchSize bounds how many records the dispatcher pulls from
	// the ring per iteration. Defaults to 256.
	DispatchBatchSize int

	// DispatchIdleWait bounds how long the dispatcher sleeps when the ring
	// is empty before polling again. Defaults to 10ms.
	DispatchIdleWait time.Duration

	// ShutdownTimeout bounds Close's drain-then-close-sinks sequence.
	// Defaults to 5s.
	ShutdownTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Extractor == nil {
		o.Extractor = acontext.Static(acontext.Empty())
	}
	if o.Encoder == nil {
		o.Encoder = wire.New(wire.Options{})
	}
	if o.DispatchBatchSize <= 0 {
		o.DispatchBatchSize = 256
	}
	if o.DispatchIdleWait <= 0 {
		o.DispatchIdleWait = 10 * time.Millisecond
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
}
