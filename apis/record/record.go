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

package record

import (
	"fmt"
	"time"

	"dirpx.dev/dlog/apis/context"
	"dirpx.dev/dlog/apis/field"
	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/value"
)

// TruncatedMarkerKey is the field name set to true on records whose
// serialized size exceeded the configured cap and were truncated.
const TruncatedMarkerKey = "__truncated__"

// Record is the canonical log event shape inside dlog.
//
// Implementations are free to treat Record as immutable and use copy-on-write
// when plugins need to modify fields.
//
// Invariants (spec data model):
//   - Level is immutable once set.
//   - Time is assigned once, at or before the level gate decision.
//   - Record is logically immutable after the redactor completes; encoding
//     and sink delivery observe a snapshot (Data is replaced, not mutated,
//     by redaction/truncation passes).
type Record struct {
	// Time is the event time (UTC is recommended but not enforced here)
	Time time.Time
	// Level defines the severity
	Level level.Level
	// Message is the human-readable text
	Message string
	// Host is the once-per-process identity (hostname, pid, logger name).
	Host Host
	// Ctx is the well-known, pre-extracted context (trace/correlation/node/...)
	Ctx context.Pack
	// Fields is the structured payload (caller-supplied or plugin-enriched),
	// kept for backward compatibility with the field.Field-based Logger API.
	Fields []field.Field
	// Data is the canonical tagged-value field map (spec §3 "Fields"):
	// string keys to value.Value, duplicate keys merged last-write-wins in
	// insertion order. This is what the redactor and serializer operate on.
	Data value.Value
	// Err is the original error, if any (implementations may project it via ErrorAdapter)
	Err error
	// Truncated is set by the serializer when the encoded size exceeded the
	// configured cap and the payload was replaced with a placeholder.
	Truncated bool
}

// NewRecord builds a Record with the required parts.
// This is a convenience constructor for code that wants an explicit shape.
// It does NOT perform deep copies of fields; callers should pass owned slices.
func NewRecord(
	t time.Time,
	lvl level.Level,
	msg string,
	ctx context.Pack,
	fields []field.Field,
	err error,
) Record {
	return Record{
		Time:    t,
		Level:   lvl,
		Message: msg,
		Ctx:     ctx,
		Fields:  fields,
		Err:     err,
	}
}

// Validate checks that the record has a valid level and a non-zero timestamp.
// This is a contract-level check; runtime implementations may add stricter rules
// (e.g. require UTC, require non-empty message, limit field counts).
func (r Record) Validate() error {
	if err := r.Level.Validate(); err != nil {
		return fmt.Errorf("dlog: invalid record level: %w", err)
	}
	if r.Time.IsZero() {
		return fmt.Errorf("dlog: record time is zero")
	}
	// Ctx and Fields are allowed to be empty.
	return nil
}

// WithFields returns a shallow copy of the record with additional fields appended.
// This is useful for plugins that want to enrich the record while keeping the
// original value semantics.
//
// NOTE: this helper lives in apis because enriching records is a very common
// operation for all implementations; keeping it here ensures consistent behavior.
func (r Record) WithFields(extra ...field.Field) Record {
	if len(extra) == 0 {
		return r
	}
	// shallow copy
	out := r
	out.Fields = append(append([]field.Field(nil), r.Fields...), extra...)
	return out
}

// WithError returns a shallow copy of the record with a new error attached.
func (r Record) WithError(err error) Record {
	out := r
	out.Err = err
	return out
}

// WithData returns a shallow copy of the record with Data replaced.
// Redaction and truncation passes use this to produce a new immutable
// snapshot rather than mutating Data in place.
func (r Record) WithData(v value.Value) Record {
	out := r
	out.Data = v
	return out
}

// DataEntries returns the ordered key/value entries of Data, or nil if Data
// is not a map (e.g. a record built without structured fields).
func (r Record) DataEntries() []value.MapEntry {
	if r.Data.Kind != value.KindMap {
		return nil
	}
	return r.Data.Map
}
