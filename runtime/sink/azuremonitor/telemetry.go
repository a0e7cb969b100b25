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

package azuremonitor

// envelopeKeys are the fields every wire-encoded record carries outside of
// user data.
var envelopeKeys = map[string]bool{
	"level": true, "levelLabel": true, "time": true, "hostname": true,
	"pid": true, "name": true, "msg": true, "__truncated__": true,
}

// inferTelemetryType guesses an Application Insights telemetry type from a
// record's data fields, per spec §4.11: request-like -> Request,
// dependency-like -> RemoteDependency, a numeric metric value -> Metric,
// error-shaped -> Exception, otherwise -> Message.
func inferTelemetryType(payload map[string]any) string {
	if hasAny(payload, "exception", "error", "stack", "stack_trace") {
		return "Exception"
	}
	if _, numeric := asNumber(payload["value"]); numeric && hasAny(payload, "metric_name", "value") {
		return "Metric"
	}
	if hasAny(payload, "dependency_type", "target", "dependency") {
		return "RemoteDependency"
	}
	if hasAny(payload, "url", "method", "response_code", "status_code", "duration") {
		return "Request"
	}
	return "Message"
}

func baseTypeFor(telemetryType string) string {
	return telemetryType + "Data"
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func asNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
