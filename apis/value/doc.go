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

// Package value defines the tagged sum type used for structured log field
// payloads: null, bool, int64, float64, string, bytes, list, map, and a
// projected error shape.
//
// dlog's dynamic property bags (the source's free-form object fields) are
// re-architected here as an explicit, closed set of kinds instead of a
// reflective "any" walk. Runtime encoders switch on Kind; they never walk
// a prototype chain or a Go struct's exported fields.
package value
