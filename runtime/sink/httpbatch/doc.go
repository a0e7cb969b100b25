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

// Package httpbatch is the shared scaffolding every HTTP-backed cloud sink
// (Elasticsearch, CloudWatch, Stackdriver, Azure Monitor) is built on:
// accumulate-by-size-or-interval batching, a single-in-flight-send
// guarantee, a bounded pending queue with head-requeue-and-backoff on
// retriable failures, and a pluggable RequestBuilder so each concrete sink
// only has to supply its own serialize/sign/classify/consume-side-effects
// logic.
package httpbatch
