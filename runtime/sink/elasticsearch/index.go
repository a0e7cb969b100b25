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

package elasticsearch

import (
	"fmt"
	"strings"
	"time"
)

// resolveIndexName expands pattern's {YYYY}/{MM}/{DD}/{YYYY.MM.DD} tokens
// against t, per spec §4.8.
func resolveIndexName(pattern string, t time.Time) string {
	t = t.UTC()
	r := strings.NewReplacer(
		"{YYYY.MM.DD}", fmt.Sprintf("%04d.%02d.%02d", t.Year(), t.Month(), t.Day()),
		"{YYYY}", fmt.Sprintf("%04d", t.Year()),
		"{MM}", fmt.Sprintf("%02d", t.Month()),
		"{DD}", fmt.Sprintf("%02d", t.Day()),
	)
	return r.Replace(pattern)
}
