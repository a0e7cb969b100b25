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

// Package console implements dlog's stdout/stderr sink: already-encoded
// bytes (produced upstream by whichever runtime/encoder the engine is
// configured with) are written straight through to the chosen stream.
// Writes are serialized with a mutex since os.Stdout/os.Stderr are shared
// across every goroutine that logs.
package console
