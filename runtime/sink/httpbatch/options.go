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
	"net/http"
	"time"
)

// Options configures a Batcher.
type Options struct {
	// Name identifies the sink for Stats/diagnostics.
	Name string

	// Method and URL target every request the batcher issues.
	Method string
	URL    string

	// Client sends requests. Defaults to a Client with a 30s Timeout.
	Client *http.Client

	// Builder supplies the per-destination serialize/sign/classify/consume
	// hooks. Required.
	Builder RequestBuilder

	// BatchSize is the record count that triggers a send. Default 500.
	BatchSize int

	// BatchInterval is the maximum time a partial batch waits before being
	// sent anyway. Default 1s.
	BatchInterval time.Duration

	// MaxBodyBytes bounds a single request body. A batch serializing larger
	// than this is split in half, recursively, until each piece fits or a
	// single entry remains. Default 4 MiB.
	MaxBodyBytes int

	// QueueCapacity bounds the pending queue. Default 3 * BatchSize, per
	// spec's fixed ratio between batch size and queue depth.
	QueueCapacity int

	// RetryInitialBackoff is the delay before the first retry of a failed
	// send. Default 250ms.
	RetryInitialBackoff time.Duration

	// RetryMaxBackoff caps the exponential backoff growth. Default 30s.
	RetryMaxBackoff time.Duration

	// MaxRequeuePerFailure bounds how many records from one failed send are
	// re-queued at the head of the pending queue; the rest are dropped and
	// counted. Default 500.
	MaxRequeuePerFailure int

	// MaxRetries bounds how many consecutive retriable failures a pending
	// batch survives before it is dropped outright and the sink is marked
	// dead. Default 3.
	MaxRetries int
}

func (o *Options) applyDefaults() {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.BatchInterval <= 0 {
		o.BatchInterval = time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 4 * 1024 * 1024
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 3 * o.BatchSize
	}
	if o.RetryInitialBackoff <= 0 {
		o.RetryInitialBackoff = 250 * time.Millisecond
	}
	if o.RetryMaxBackoff <= 0 {
		o.RetryMaxBackoff = 30 * time.Second
	}
	if o.MaxRequeuePerFailure <= 0 {
		o.MaxRequeuePerFailure = 500
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
}
