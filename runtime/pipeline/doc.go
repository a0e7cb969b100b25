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

// Package pipeline is the first concrete runtime for the apis/pipeline
// contracts: a sequential stage.Stage executor plus plugin.Builder
// implementations for the two stages every dlog deployment needs, level
// filtering and redaction.
//
// Engine (runtime/engine) gates level and redacts inline on its hot
// producer path and does not use this package; that stays the fast,
// allocation-light default. This package exists for callers that want to
// assemble and reuse those same two checks as composable stage.Stage
// values driven by a declarative pipeline.Specification, e.g. to add or
// reorder plugins without touching Engine.
package pipeline
