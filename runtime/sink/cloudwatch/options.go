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

package cloudwatch

import (
	"net/http"
	"time"
)

// Credentials carries the access key/secret/session token to sign requests
// with. Callers typically populate this from aws-sdk-go-v2's config/
// credentials resolution chain (see ResolveCredentials).
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Options configures a CloudWatch Logs sink.
type Options struct {
	// Name identifies the sink for Stats/diagnostics.
	Name string

	Region      string
	LogGroup    string
	Hostname    string // used to derive the log stream name
	Credentials Credentials

	Client *http.Client

	// EndpointOverride replaces the default "https://logs.<region>.
	// amazonaws.com/" endpoint — for pointing at a local test server or a
	// VPC endpoint.
	EndpointOverride string

	BatchSize     int
	BatchInterval time.Duration
	MaxBodyBytes  int

	// MaxRetries bounds how many consecutive retriable failures a pending
	// batch survives before it is dropped and the sink marked dead.
	// Default 3.
	MaxRetries int
}

func (o *Options) applyDefaults() {
	if o.Hostname == "" {
		o.Hostname = "dlog"
	}
}

func (o *Options) endpoint() string {
	if o.EndpointOverride != "" {
		return o.EndpointOverride
	}
	return "https://logs." + o.Region + ".amazonaws.com/"
}
