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

package file

import (
	"context"
	"fmt"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
	"dirpx.dev/dlog/runtime/sink/policy"
)

// Options is the file-sink-specific configuration, keyed off the path the
// record stream appends to. BaseDirs overrides the default allow-list
// (working directory + system temp dir) used by ValidatePath.
type Options struct {
	Path     string
	BaseDirs []string
}

// New validates path and constructs a rotating, path-bounded FileSink. The
// returned Sink's rotation/backoff behavior is carried entirely by
// runtime/sink/policy.NewRotatingFileSink; this layer only adds the
// boundary check spec.md §4.7 requires before any file is ever opened.
func New(ctx context.Context, name string, spec asink.Specification, opt Options) (asink.Sink, error) {
	clean, err := ValidatePath(opt.Path, opt.BaseDirs)
	if err != nil {
		return nil, fmt.Errorf("sink/file: %s: %w", name, err)
	}

	rotation := policy.FileRotationOptions{
		Path: clean,
		Name: name,
	}
	if spec.Rotation != nil {
		rotation.Policy = *spec.Rotation
	}

	s, err := policy.NewRotatingFileSink(rotation)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func init() {
	sink.Register("sink", "file", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		var opt Options
		if spec.Labels != nil {
			opt.Path = spec.Labels["path"]
		}
		return New(ctx, name, spec, opt)
	})
}
