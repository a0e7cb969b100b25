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

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	apipeline "dirpx.dev/dlog/apis/pipeline"
	"dirpx.dev/dlog/apis/pipeline/plugin"
	"dirpx.dev/dlog/apis/pipeline/stage"
	"dirpx.dev/dlog/apis/record"
	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/encoder"
)

// sequential is the first concrete apipeline.Pipeline: it runs Pre stages in
// order, encodes once, fans the result out to every sink, then runs Post
// stages (which observe the record but cannot change whether it was
// delivered — delivery already happened).
type sequential struct {
	pre   []stage.Stage
	post  []stage.Stage
	enc   encoder.Encoder
	sinks []asink.Sink
}

var _ apipeline.Pipeline = (*sequential)(nil)

// New builds an apipeline.Pipeline that runs pre, encodes with enc, writes
// to every sink, then runs post.
func New(pre []stage.Stage, post []stage.Stage, enc encoder.Encoder, sinks []asink.Sink) apipeline.Pipeline {
	return &sequential{pre: pre, post: post, enc: enc, sinks: sinks}
}

func (p *sequential) Emit(ctx context.Context, r record.Record) error {
	r, dropped, err := runStages(ctx, p.pre, r)
	if err != nil {
		return err
	}
	if dropped {
		return nil
	}

	var buf bytes.Buffer
	if err := p.enc.Encode(&r, &buf); err != nil {
		return fmt.Errorf("pipeline: encode: %w", err)
	}
	entry := buf.Bytes()

	var errs []error
	for _, s := range p.sinks {
		if err := s.Write(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("pipeline: sink %s: %w", s.Name(), err))
		}
	}

	if _, _, err := runStages(ctx, p.post, r); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *sequential) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pipeline: flush %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// runStages runs stages in order against r, stopping at the first Drop.
func runStages(ctx context.Context, stages []stage.Stage, r record.Record) (record.Record, bool, error) {
	for _, st := range stages {
		if !st.Enabled() {
			continue
		}
		next, decision, err := st.Process(ctx, r)
		if err != nil {
			return r, false, fmt.Errorf("pipeline: stage %s: %w", st.Name(), err)
		}
		r = next
		if decision == stage.Drop {
			return r, true, nil
		}
	}
	return r, false, nil
}

// builder implements apipeline.Builder against the plugin.Builder set
// registered with it and a fixed sink set resolved by name.
type builder struct {
	plugins map[string]plugin.Builder
	sinks   map[string]asink.Sink
	enc     encoder.Encoder
}

var _ apipeline.Builder = (*builder)(nil)

// NewBuilder returns an apipeline.Builder that resolves plugin.Specification
// entries via plugins (keyed by Kind) and sink names via sinks, encoding
// every delivered record with enc.
func NewBuilder(plugins []plugin.Builder, sinks map[string]asink.Sink, enc encoder.Encoder) apipeline.Builder {
	byKind := make(map[string]plugin.Builder, len(plugins))
	for _, b := range plugins {
		byKind[b.Kind()] = b
	}
	return &builder{plugins: byKind, sinks: sinks, enc: enc}
}

func (b *builder) Build(ctx context.Context, spec apipeline.Specification) (apipeline.Pipeline, error) {
	pre, err := b.buildStages(ctx, spec.Pre)
	if err != nil {
		return nil, err
	}
	post, err := b.buildStages(ctx, spec.Post)
	if err != nil {
		return nil, err
	}

	sinks := make([]asink.Sink, 0, len(spec.Sinks))
	for _, name := range spec.Sinks {
		s, ok := b.sinks[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: sink %q not found", name)
		}
		sinks = append(sinks, s)
	}

	return New(pre, post, b.enc, sinks), nil
}

func (b *builder) buildStages(ctx context.Context, specs []plugin.Specification) ([]stage.Stage, error) {
	out := make([]stage.Stage, 0, len(specs))
	for _, spec := range specs {
		if spec.Enabled != nil && !*spec.Enabled {
			continue
		}
		pb, ok := b.plugins[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("pipeline: unknown plugin kind %q", spec.Kind)
		}
		st, err := pb.Build(ctx, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
