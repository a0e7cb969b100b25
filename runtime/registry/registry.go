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

package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Key identifies a registered builder by kind ("sink", "plugin", ...) and
// name ("stdout", "file", "redact", ...).
type Key struct {
	Kind string
	Name string
}

// Builder constructs a product P from a Specification Spec.
type Builder[P any, Spec any] func(ctx context.Context, name string, spec Spec) (P, error)

// Option configures a Registry at construction time.
type Option func(*options)

type options struct {
	caseFoldLower bool
}

// WithCaseFoldLower makes lookups case-insensitive by lower-casing Kind and
// Name before use.
func WithCaseFoldLower() Option {
	return func(o *options) { o.caseFoldLower = true }
}

// Registry holds builders keyed by (kind, name). It is safe for concurrent
// use; Register calls are expected during init(), Build calls during
// steady-state operation.
type Registry[P any, Spec any] struct {
	mu       sync.RWMutex
	builders map[Key]Builder[P, Spec]
	opt      options
	sealed   bool
}

// New constructs an empty Registry.
func New[P any, Spec any](opts ...Option) *Registry[P, Spec] {
	r := &Registry[P, Spec]{
		builders: make(map[Key]Builder[P, Spec]),
	}
	for _, o := range opts {
		o(&r.opt)
	}
	return r
}

func (r *Registry[P, Spec]) normalize(k Key) Key {
	if r.opt.caseFoldLower {
		k.Kind = strings.ToLower(k.Kind)
		k.Name = strings.ToLower(k.Name)
	}
	return k
}

// Register adds a builder under key. It returns an error if the registry is
// sealed or the key is already registered.
func (r *Registry[P, Spec]) Register(key Key, b Builder[P, Spec]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry: sealed, cannot register %+v", key)
	}
	key = r.normalize(key)
	if _, exists := r.builders[key]; exists {
		return fmt.Errorf("registry: duplicate registration for %+v", key)
	}
	r.builders[key] = b
	return nil
}

// MustRegister calls Register and panics on error. It is meant for use from
// package init() where a duplicate or late registration is a programmer
// error, not a runtime condition to recover from.
func MustRegister[P any, Spec any](r *Registry[P, Spec], key Key, b Builder[P, Spec]) {
	if err := r.Register(key, b); err != nil {
		panic(err)
	}
}

// Build looks up the builder for key and invokes it with name and spec.
func (r *Registry[P, Spec]) Build(ctx context.Context, key Key, spec Spec) (P, error) {
	r.mu.RLock()
	key = r.normalize(key)
	b, ok := r.builders[key]
	r.mu.RUnlock()

	var zero P
	if !ok {
		return zero, fmt.Errorf("registry: no builder registered for %+v", key)
	}
	return b(ctx, key.Name, spec)
}

// Seal prevents further Register calls. Intended to be called once all
// package init() registrations have run.
func (r *Registry[P, Spec]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Keys returns all registered keys, for diagnostics.
func (r *Registry[P, Spec]) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Key, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	return out
}
