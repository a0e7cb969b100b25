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

package stackdriver

// severityFromWeight maps a dlog level.Level.Weight() to a Cloud Logging
// severity name, per spec §4.10.
func severityFromWeight(weight int) string {
	switch {
	case weight >= 60:
		return "CRITICAL"
	case weight >= 50:
		return "ERROR"
	case weight >= 40:
		return "WARNING"
	case weight >= 30:
		return "INFO"
	case weight >= 20:
		return "DEBUG"
	default:
		return "DEFAULT"
	}
}
