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

package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mitchellh/mapstructure"

	"dirpx.dev/dlog/apis/pipeline/plugin"
	"dirpx.dev/dlog/apis/pipeline/stage"
	"dirpx.dev/dlog/runtime/redact"
)

// redactStageConfig is the shape expected in plugin.Specification.Config for
// RedactStageKind.
type redactStageConfig struct {
	// UseDefaults seeds the redactor with redact.DefaultFieldNames and
	// redact.DefaultPatterns before Rules/FieldNames are appended.
	UseDefaults bool     `mapstructure:"use_defaults" json:"use_defaults" yaml:"use_defaults"`
	FieldNames  []string `mapstructure:"field_names" json:"field_names" yaml:"field_names"`
	Rules       []struct {
		Pattern string `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
		Mask    string `mapstructure:"mask" json:"mask" yaml:"mask"`
	} `mapstructure:"rules" json:"rules" yaml:"rules"`
}

// levelBuilder implements plugin.Builder for LevelStageKind.
type levelBuilder struct{}

func (levelBuilder) Kind() string { return LevelStageKind }

func (levelBuilder) Build(_ context.Context, spec plugin.Specification) (stage.Stage, error) {
	var cfg levelStageConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", LevelStageKind, err)
	}
	name := spec.Name
	if name == "" {
		name = LevelStageKind
	}
	return levelStageFromConfig(name, cfg)
}

// redactBuilder implements plugin.Builder for RedactStageKind.
type redactBuilder struct{}

func (redactBuilder) Kind() string { return RedactStageKind }

func (redactBuilder) Build(_ context.Context, spec plugin.Specification) (stage.Stage, error) {
	var cfg redactStageConfig
	if err := decodeConfig(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", RedactStageKind, err)
	}

	opt := redact.Options{}
	if cfg.UseDefaults {
		opt.FieldNameSubstrings = append(opt.FieldNameSubstrings, redact.DefaultFieldNames...)
		opt.Patterns = append(opt.Patterns, redact.DefaultPatterns...)
	}
	opt.FieldNameSubstrings = append(opt.FieldNameSubstrings, cfg.FieldNames...)
	for _, rule := range cfg.Rules {
		if rule.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: rule %q: %w", RedactStageKind, rule.Pattern, err)
		}
		mask := rule.Mask
		if mask == "" {
			mask = "[REDACTED]"
		}
		opt.Patterns = append(opt.Patterns, redact.Pattern{
			Name: rule.Pattern,
			Re:   re,
			Mask: func(string) string { return mask },
		})
	}

	name := spec.Name
	if name == "" {
		name = RedactStageKind
	}
	return NewRedactStage(name, redact.New(opt)), nil
}

// Builders returns the plugin.Builder set this package provides, keyed by
// Kind() so callers can register them with whatever plugin registry they use.
func Builders() []plugin.Builder {
	return []plugin.Builder{levelBuilder{}, redactBuilder{}}
}

// decodeConfig decodes an opaque plugin.Specification.Config (typically a
// map[string]any from a YAML/JSON-backed provider, but may already be a
// *cfg if constructed from code) into cfg.
func decodeConfig(raw any, cfg any) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
