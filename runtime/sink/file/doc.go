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

// Package file builds the FileSink: a path-validated, size/age-rotated
// append writer. It registers itself with runtime/sink under kind "sink",
// name "file" so config-driven construction can find it through
// runtime/sink.Build.
//
// The rotation and writing machinery lives in runtime/sink/policy
// (rotatingFileSink); this package adds the path-validation boundary the
// rotation layer itself does not know about, and wires policy.Rotation off
// of apis/sink.Specification.
package file
