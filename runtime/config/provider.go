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
	"fmt"

	"dirpx.dev/dlog/apis/level"
	apipeline "dirpx.dev/dlog/apis/pipeline"
	"dirpx.dev/dlog/apis/pipeline/plugin"
	"dirpx.dev/dlog/apis/provider"
	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/encoder"
	rpipeline "dirpx.dev/dlog/runtime/pipeline"
)

// DefaultSpecification is the lowest-priority provider.Specification:
// dlog's builtin defaults (the same "info" floor setDefaults gives viper),
// expressed as a provider.Provider would express them.
func DefaultSpecification() *provider.Specification {
	lvl := level.Info
	return &provider.Specification{MinLevel: &lvl}
}

// Specification projects a loaded Config onto a provider.Specification
// override: output.level becomes MinLevel, each configured sink name is
// listed in Sinks, and security.pii_masking.* (when enabled) becomes a
// single "redact" entry in Pipeline.Pre built for runtime/pipeline's
// plugin.Builder. Performance.* and per-sink Labels have no
// provider.Specification field — the doc.go merge semantics only cover
// MinLevel/Fields/Pipeline/Sinks — so Config remains the source of truth
// for those; BuildSinks reads Config.Sinks directly rather than going
// through this projection.
func (c *Config) Specification() (*provider.Specification, error) {
	lvl, err := level.ParseLevel(c.Output.Level)
	if err != nil {
		return nil, fmt.Errorf("config: specification: %w", err)
	}
	spec := &provider.Specification{MinLevel: &lvl}

	names := make([]string, 0, len(c.Sinks))
	for _, sc := range c.Sinks {
		names = append(names, sc.Name)
	}
	spec.Sinks = names

	if c.Security.PIIMasking.Enabled {
		fieldNames := make([]string, 0, len(c.Security.PIIMasking.Rules))
		rules := make([]map[string]any, 0, len(c.Security.PIIMasking.Rules))
		for _, r := range c.Security.PIIMasking.Rules {
			if r.Field != "" {
				fieldNames = append(fieldNames, r.Field)
			}
			if r.Pattern != "" {
				rules = append(rules, map[string]any{"pattern": r.Pattern, "mask": r.Mask})
			}
		}
		spec.Pipeline = &apipeline.Specification{
			Pre: []plugin.Specification{{
				Kind: rpipeline.RedactStageKind,
				Name: "pii_masking",
				Config: map[string]any{
					"use_defaults": true,
					"field_names":  fieldNames,
					"rules":        rules,
				},
			}},
			Sinks: names,
		}
	}

	return spec, nil
}

// Resolve merges DefaultSpecification with Specification, following the
// same precedence every provider.Provider implementation is expected to
// honor (provider.MergeAll, lowest priority first).
func (c *Config) Resolve() (*provider.Specification, error) {
	override, err := c.Specification()
	if err != nil {
		return nil, err
	}
	return provider.MergeAll(DefaultSpecification(), override), nil
}

// BuildPipeline builds an apis/pipeline.Pipeline from the resolved
// Specification: the PII-masking redact stage (if security.pii_masking.enabled)
// ahead of sinks, fanning out to whichever of sinks the resolved Sinks list
// names. Unlike Engine, which redacts and gates level inline on its hot
// path, this is the stage.Stage-composed alternative described in
// runtime/pipeline's package doc — useful for callers that want to add or
// reorder plugins without an Engine rebuild.
func (c *Config) BuildPipeline(ctx context.Context, sinks map[string]asink.Sink, enc encoder.Encoder) (apipeline.Pipeline, error) {
	resolved, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	spec := apipeline.Specification{Sinks: resolved.Sinks}
	if resolved.Pipeline != nil {
		spec = *resolved.Pipeline
	}
	builder := rpipeline.NewBuilder(rpipeline.Builders(), sinks, enc)
	return builder.Build(ctx, spec)
}
