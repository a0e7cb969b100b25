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

	"dirpx.dev/dlog/apis/pipeline/stage"
	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/runtime/redact"
)

// RedactStageKind is the plugin.Specification.Kind that builds a redactStage.
const RedactStageKind = "redact"

// redactStage wraps a *redact.Redactor as a stage.Stage. It never drops a
// record; it only masks Data/Fields in place before returning it.
type redactStage struct {
	name     string
	redactor *redact.Redactor
	enabled  bool
}

var _ stage.Stage = (*redactStage)(nil)

// NewRedactStage wraps r as a named, always-continuing stage.Stage.
func NewRedactStage(name string, r *redact.Redactor) stage.Stage {
	return &redactStage{name: name, redactor: r, enabled: r != nil}
}

func (s *redactStage) Name() string  { return s.name }
func (s *redactStage) Enabled() bool { return s.enabled }

func (s *redactStage) Process(_ context.Context, r record.Record) (record.Record, stage.Decision, error) {
	if !s.enabled {
		return r, stage.Continue, nil
	}
	return s.redactor.Redact(r), stage.Continue, nil
}
