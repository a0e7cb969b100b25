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

// Package engine implements dlog's top-level Logger: the level gate, the
// ring-buffered dispatcher, and the fan-out to every configured sink.
//
// A caller's Log call only ever touches the ring buffer (runtime/buffer)
// and, for FATAL, a synchronous best-effort drain; the actual encode +
// sink-write work happens on a single dispatcher goroutine so concurrent
// producers never contend on encoder or sink state.
package engine
