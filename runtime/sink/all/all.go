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

// Package all registers every built-in sink kind with the runtime/sink
// registry as a side effect of being imported. A host binary that wants
// the full built-in catalog (rather than hand-picking sinks) imports this
// package for its side effect:
//
//	import _ "dirpx.dev/dlog/runtime/sink/all"
package all

import (
	_ "dirpx.dev/dlog/runtime/sink/azuremonitor"
	_ "dirpx.dev/dlog/runtime/sink/cloudwatch"
	_ "dirpx.dev/dlog/runtime/sink/console"
	_ "dirpx.dev/dlog/runtime/sink/elasticsearch"
	_ "dirpx.dev/dlog/runtime/sink/file"
	_ "dirpx.dev/dlog/runtime/sink/stackdriver"
)
