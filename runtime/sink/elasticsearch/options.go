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

package elasticsearch

import (
	"net/http"
	"time"
)

// Options configures an Elasticsearch bulk sink.
type Options struct {
	// Name identifies the sink for Stats/diagnostics.
	Name string

	// Endpoint is the cluster's base URL, e.g. "https://es.example.com:9200".
	Endpoint string

	// IndexPattern names the target index, with tokens {YYYY}, {MM}, {DD}
	// and {YYYY.MM.DD} substituted from each record's timestamp. Default
	// "dlog-{YYYY.MM.DD}".
	IndexPattern string

	// Username/Password enable HTTP basic auth. Ignored if APIKey is set.
	Username string
	Password string

	// APIKey, when set, is sent as "Authorization: ApiKey <APIKey>" per
	// Elasticsearch's API key auth scheme.
	APIKey string

	Client *http.Client

	BatchSize     int
	BatchInterval time.Duration
	MaxBodyBytes  int

	// MaxRetries bounds how many consecutive retriable failures a pending
	// batch survives before it is dropped and the sink marked dead.
	// Default 3.
	MaxRetries int
}

func (o *Options) applyDefaults() {
	if o.IndexPattern == "" {
		o.IndexPattern = "dlog-{YYYY.MM.DD}"
	}
}
