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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/apis/sink/policy"
	"dirpx.dev/dlog/runtime/sink"
)

// credentialEnvDefaults fills in labels a sink didn't set explicitly from
// the environment variables spec §6 names, so a deployment can supply
// AWS/GCP/Azure credentials the usual way instead of inlining them in the
// sink's labels.
func credentialEnvDefaults(kind string, labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	setIfAbsent := func(key, env string) {
		if out[key] == "" {
			if v := os.Getenv(env); v != "" {
				out[key] = v
			}
		}
	}

	switch kind {
	case "cloudwatch":
		setIfAbsent("region", "AWS_REGION")
		setIfAbsent("log_group", "CLOUDWATCH_LOG_GROUP")
		// Access key / secret key / session token are intentionally not
		// copied into labels: runtime/sink/cloudwatch resolves credentials
		// itself via aws-sdk-go-v2/config.LoadDefaultConfig, which already
		// consults AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
		// AWS_SESSION_TOKEN ahead of the shared config file and IMDS.
	case "stackdriver":
		setIfAbsent("project_id", "GCP_PROJECT_ID")
		setIfAbsent("log_name", "STACKDRIVER_LOG_NAME")
	case "azuremonitor":
		setIfAbsent("connection_string", "AZURE_CONNECTION_STRING")
	}
	return out
}

// BuildSinks constructs one asink.Sink per configured entry via the
// runtime/sink registry, applying the environment-variable credential
// defaults named in spec §6 before dispatch. A name is required and must
// be unique; Kind selects the registered builder. Construction failures
// are collected and returned together with whatever sinks did succeed, so
// a caller can decide whether a single misconfigured sink should block
// startup entirely.
func (c *Config) BuildSinks(ctx context.Context) ([]asink.Sink, error) {
	seen := make(map[string]bool, len(c.Sinks))
	sinks := make([]asink.Sink, 0, len(c.Sinks))
	var errs []error

	for _, sc := range c.Sinks {
		if sc.Name == "" {
			errs = append(errs, fmt.Errorf("config: sinks: entry missing name"))
			continue
		}
		if seen[sc.Name] {
			errs = append(errs, fmt.Errorf("config: sinks: duplicate name %q", sc.Name))
			continue
		}
		seen[sc.Name] = true

		spec := asink.Specification{
			Name:   sc.Name,
			Labels: credentialEnvDefaults(sc.Kind, sc.Labels),
			Retry:  policy.Retry{MaxRetries: sc.MaxRetries},
		}
		s, err := sink.Build(ctx, "sink", sc.Kind, spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: sinks[%s]: %w", sc.Name, err))
			continue
		}
		sinks = append(sinks, s)
	}

	if len(errs) > 0 {
		return sinks, fmt.Errorf("config: %d sink(s) failed to build: %w", len(errs), errors.Join(errs...))
	}
	return sinks, nil
}
