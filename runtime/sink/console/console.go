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

package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
)

// Stream selects which OS stream a consoleSink writes to.
type Stream uint8

const (
	Stdout Stream = iota
	Stderr
)

// Options configures a console sink.
type Options struct {
	Name   string
	Stream Stream
	// Writer overrides the destination entirely (tests, embedding). When
	// set, Stream is ignored.
	Writer io.Writer
}

type consoleSink struct {
	name string
	mu   sync.Mutex
	w    *bufio.Writer
	raw  io.Writer

	closed  atomic.Bool
	written atomic.Int64
	dropped atomic.Int64
	lastErr atomic.Value // string
}

var _ asink.Sink = (*consoleSink)(nil)

// New constructs a console sink writing to os.Stdout or os.Stderr (or a
// caller-supplied io.Writer).
func New(opt Options) asink.Sink {
	name := opt.Name
	if name == "" {
		name = "console"
	}
	w := opt.Writer
	if w == nil {
		if opt.Stream == Stderr {
			w = os.Stderr
		} else {
			w = os.Stdout
		}
	}
	return &consoleSink{name: name, w: bufio.NewWriter(w), raw: w}
}

func (s *consoleSink) Name() string { return s.name }

func (s *consoleSink) Write(ctx context.Context, entry []byte) error {
	if s.closed.Load() {
		s.dropped.Add(1)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(entry); err != nil {
		s.lastErr.Store(err.Error())
		s.dropped.Add(1)
		return err
	}
	s.written.Add(1)
	return nil
}

func (s *consoleSink) WriteBatch(ctx context.Context, entries [][]byte) error {
	if s.closed.Load() {
		s.dropped.Add(int64(len(entries)))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, err := s.w.Write(e); err != nil {
			s.lastErr.Store(err.Error())
			s.dropped.Add(1)
			return err
		}
		s.written.Add(1)
	}
	return nil
}

func (s *consoleSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *consoleSink) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *consoleSink) Healthy() bool { return !s.closed.Load() }

func (s *consoleSink) Stats() map[string]any {
	lastErr := ""
	if v, ok := s.lastErr.Load().(string); ok {
		lastErr = v
	}
	return map[string]any{
		"written":    s.written.Load(),
		"dropped":    s.dropped.Load(),
		"closed":     s.closed.Load(),
		"last_error": lastErr,
	}
}

func init() {
	sink.Register("sink", "console", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		stream := Stdout
		if spec.Labels != nil && spec.Labels["stream"] == "stderr" {
			stream = Stderr
		}
		return New(Options{Name: name, Stream: stream}), nil
	})
}
