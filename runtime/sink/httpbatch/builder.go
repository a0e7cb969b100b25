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
	"context"
	"net/http"
)

// RequestBuilder is the per-sink hook set a concrete cloud sink supplies.
// Batcher owns accumulation, the single-in-flight guarantee, body-size
// splitting and the requeue-with-backoff policy; everything specific to one
// destination — wire format, authentication, response semantics — lives
// here.
type RequestBuilder interface {
	// Serialize turns a batch of already-encoded log entries into a single
	// request body, along with the Content-Type to send it under.
	Serialize(entries [][]byte) (body []byte, contentType string, err error)

	// Sign finalizes req: method/URL/body are already set by Batcher. body
	// is the exact byte slice the request carries, handed to builders whose
	// signing scheme must hash the payload (e.g. AWS SigV4). Sign only adds
	// headers, auth tokens, or request signatures — it must not mutate
	// body itself.
	Sign(ctx context.Context, req *http.Request, body []byte) error

	// Classify inspects a completed response and returns a
	// *dirpx.dev/dlog/runtime/sinkerr.Error (or nil for success). Batcher
	// uses the Retriable flag to decide whether to requeue.
	Classify(resp *http.Response, respBody []byte) error

	// Consume runs only after Classify (or ClassifyBatch, for builders that
	// implement PartialClassifier) reports success. It lets a builder pick
	// up response side-effects (a new sequence token, a bulk index's
	// per-item results). A non-nil return is logged, never retried: Consume
	// runs after the HTTP exchange already succeeded.
	Consume(resp *http.Response, respBody []byte) error
}

// PartialResult reports a bulk-style response's per-item outcome.
type PartialResult struct {
	// Retry holds the entries that failed retriably and should be
	// requeued.
	Retry [][]byte

	// Dropped counts entries that failed non-retriably; the builder has
	// already logged or classified them, Batcher only tallies them.
	Dropped int
}

// PartialClassifier is implemented by builders whose destination can report
// per-item success/failure within a single batch response (Elasticsearch's
// bulk API is the motivating case: one request, many documents, each with
// its own status). When a RequestBuilder also implements PartialClassifier,
// Batcher calls ClassifyBatch instead of Classify so a partially-failed
// batch doesn't retry or drop entries that already succeeded.
type PartialClassifier interface {
	ClassifyBatch(resp *http.Response, respBody []byte, entries [][]byte) (PartialResult, error)
}
