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

package azuremonitor

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultIngestionEndpoint = "https://dc.services.visualstudio.com"

// ConnectionString is the parsed form of an Application Insights
// connection string, e.g.
// "InstrumentationKey=...;IngestionEndpoint=https://...".
type ConnectionString struct {
	InstrumentationKey string
	IngestionEndpoint  string
}

// ParseConnectionString parses a ";"-separated "Key=Value" connection
// string, falling back to the default public ingestion endpoint when none
// is provided, per spec §4.11.
func ParseConnectionString(raw string) (ConnectionString, error) {
	cs := ConnectionString{IngestionEndpoint: defaultIngestionEndpoint}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "instrumentationkey":
			cs.InstrumentationKey = kv[1]
		case "ingestionendpoint":
			cs.IngestionEndpoint = strings.TrimRight(kv[1], "/")
		}
	}
	if cs.InstrumentationKey == "" {
		return ConnectionString{}, fmt.Errorf("azuremonitor: connection string missing InstrumentationKey")
	}
	return cs, nil
}

// Options configures an Azure Monitor (Application Insights) sink.
type Options struct {
	// Name identifies the sink for Stats/diagnostics.
	Name string

	Connection ConnectionString

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
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Connection.IngestionEndpoint == "" {
		o.Connection.IngestionEndpoint = defaultIngestionEndpoint
	}
}

func (o *Options) trackURL() string {
	return o.Connection.IngestionEndpoint + "/v2/track"
}
