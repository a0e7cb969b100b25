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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// disallowedChars mirrors the Windows-reserved character set; rejecting it
// on every platform keeps log paths portable across where the process that
// reads them later runs.
const disallowedChars = `<>:"|?*`

var allowedExtensions = map[string]bool{
	".log":  true,
	".txt":  true,
	".json": true,
}

// ValidatePath enforces the FileSink path boundary: no null bytes, no UNC
// or device paths, no ".." after normalization, an extension from the
// allow-list, none of the Windows-reserved characters, and a location
// under one of baseDirs. baseDirs are compared after normalization; an
// empty baseDirs list means "working directory and system temp dir".
func ValidatePath(path string, baseDirs []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("sink/file: empty path")
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("sink/file: path contains a null byte")
	}
	if strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, `\\.\`) || strings.HasPrefix(path, `\\?\`) {
		return "", fmt.Errorf("sink/file: UNC/device paths are not allowed: %q", path)
	}
	for _, c := range disallowedChars {
		if strings.ContainsRune(path, c) {
			return "", fmt.Errorf("sink/file: path contains disallowed character %q: %q", string(c), path)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("sink/file: disallowed extension %q: %q", ext, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("sink/file: resolving absolute path: %w", err)
	}
	clean := filepath.Clean(abs)
	if hasDotDotSegment(path) {
		return "", fmt.Errorf("sink/file: path contains '..' after normalization: %q", path)
	}

	dirs := baseDirs
	if len(dirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("sink/file: resolving working directory: %w", err)
		}
		dirs = []string{wd, os.TempDir()}
	}

	for _, d := range dirs {
		absDir, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if isWithin(absDir, clean) {
			return clean, nil
		}
	}
	return "", fmt.Errorf("sink/file: path %q is outside the configured allow-list", path)
}

func hasDotDotSegment(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isWithin(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..") && rel != ".."
}
