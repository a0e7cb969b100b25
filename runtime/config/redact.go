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
	"fmt"
	"regexp"

	"dirpx.dev/dlog/runtime/redact"
)

// Redactor builds a *redact.Redactor from security.pii_masking, starting
// from redact.NewDefault's field names and patterns and appending the
// config-declared rules on top. Returns nil when masking is disabled.
func (c *Config) Redactor() (*redact.Redactor, error) {
	if !c.Security.PIIMasking.Enabled {
		return nil, nil
	}

	fieldNames := append([]string(nil), redact.DefaultFieldNames...)
	patterns := append([]redact.Pattern(nil), redact.DefaultPatterns...)

	for i, r := range c.Security.PIIMasking.Rules {
		if r.Field != "" {
			fieldNames = append(fieldNames, r.Field)
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("config: security.pii_masking.rules[%d]: %w", i, err)
		}
		mask := r.Mask
		patterns = append(patterns, redact.Pattern{
			Name: fmt.Sprintf("config_rule_%d", i),
			Re:   re,
			Mask: func(string) string { return mask },
		})
	}

	return redact.New(redact.Options{
		FieldNameSubstrings: fieldNames,
		Patterns:            patterns,
	}), nil
}
