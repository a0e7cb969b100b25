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

// Package elasticsearch writes log records to an Elasticsearch cluster's
// Bulk API over httpbatch's shared batching scaffolding: each batch becomes
// one NDJSON _bulk request, and the response's per-item results are fed
// back so only genuinely-failed (and retriable) documents are requeued.
package elasticsearch
