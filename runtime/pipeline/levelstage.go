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

	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/pipeline/stage"
	"dirpx.dev/dlog/apis/record"
)

// LevelStageKind is the plugin.Specification.Kind that builds a levelStage.
const LevelStageKind = "level_filter"

// levelStageConfig is the shape expected in plugin.Specification.Config for
// LevelStageKind. Viper/JSON/YAML decode into this via mapstructure tags so
// the same Config payload can come from a config file or from code.
type levelStageConfig struct {
	MinLevel string `mapstructure:"min_level" json:"min_level" yaml:"min_level"`
}

// levelStage drops any record below a fixed minimum level. It mirrors
// Engine.Enabled but as a stage.Stage, so it can be composed into a
// pipeline.Pipeline instead of being wired straight into the producer path.
type levelStage struct {
	name     string
	minLevel level.Level
	enabled  bool
}

var _ stage.Stage = (*levelStage)(nil)

// NewLevelStage builds a stage.Stage that drops records below min.
func NewLevelStage(name string, min level.Level) stage.Stage {
	return &levelStage{name: name, minLevel: min, enabled: true}
}

func (s *levelStage) Name() string  { return s.name }
func (s *levelStage) Enabled() bool { return s.enabled }
func (s *levelStage) Process(_ context.Context, r record.Record) (record.Record, stage.Decision, error) {
	if !s.enabled || r.Level >= s.minLevel {
		return r, stage.Continue, nil
	}
	return r, stage.Drop, nil
}

func levelStageFromConfig(name string, cfg levelStageConfig) (stage.Stage, error) {
	lvl, err := level.ParseLevel(cfg.MinLevel)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", LevelStageKind, err)
	}
	return NewLevelStage(name, lvl), nil
}
