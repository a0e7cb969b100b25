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

package stackdriver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceAccount is the subset of a GCP service-account JSON key spec §4.10
// needs: client_email and private_key.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccount decodes a service-account JSON key file's contents.
func ParseServiceAccount(raw []byte) (ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("stackdriver: parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return ServiceAccount{}, fmt.Errorf("stackdriver: service account missing client_email or private_key")
	}
	return sa, nil
}

// Options configures a Stackdriver (Cloud Logging) sink.
type Options struct {
	// Name identifies the sink for Stats/diagnostics.
	Name string

	ProjectID      string
	LogName        string
	ServiceAccount ServiceAccount

	// TokenURL is the OAuth2 token endpoint. Default
	// "https://oauth2.googleapis.com/token".
	TokenURL string

	// EntriesEndpoint is the Cloud Logging write endpoint. Default
	// "https://logging.googleapis.com/v2/entries:write".
	EntriesEndpoint string

	Client *http.Client

	BatchSize     int
	BatchInterval time.Duration
	MaxBodyBytes  int

	// MaxRetries bounds how many consecutive retriable failures a pending
	// batch survives before it is dropped and the sink marked dead.
	// Default 3.
	MaxRetries int
}

const (
	defaultTokenURL        = "https://oauth2.googleapis.com/token"
	defaultEntriesEndpoint = "https://logging.googleapis.com/v2/entries:write"
	loggingScope           = "https://www.googleapis.com/auth/logging.write"
)

func (o *Options) applyDefaults() {
	if o.TokenURL == "" {
		o.TokenURL = defaultTokenURL
	}
	if o.EntriesEndpoint == "" {
		o.EntriesEndpoint = defaultEntriesEndpoint
	}
}
