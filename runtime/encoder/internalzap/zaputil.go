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

// Package internalzap hosts small utilities for adapting dlog's
// vendor-neutral runtime to zap encoders. It provides a compact,
// deterministic mapping from dlog record concepts to zapcore types,
// plus shared configuration helpers used by console and json encoders.
package internalzap

import (
	"sort"
	"strings"
	"time"

	alevel "dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	avalue "dirpx.dev/dlog/apis/value"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------
// Encoder configuration & options
// -----------------------------------------------------------------------------

// DefaultEncoderConfig returns a minimal, stable zap EncoderConfig shared by
// both console and JSON adapters. We deliberately leave caller/name/stack
// keys emptyâ€”dlog controls those concerns at higher layers.
func DefaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "",
		LineEnding:     "\n", // final framing normalized by NormalizeLineEnding
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// PickLineEnding converts an optional boolean into a concrete line ending.
// Semantics:
//   - nil or true  => "\n" (NDJSON-style framing)
//   - false        => ""   (no trailing newline)
func PickLineEnding(p *bool) string {
	if p == nil || *p {
		return "\n"
	}
	return ""
}

// NormalizeLineEnding enforces the desired trailing newline policy on the
// encoded byte slice, independent of zap's internal defaults.
//
// Behavior:
//   - ending == "\n": ensure a single trailing '\n' (idempotent)
//   - ending == "":   ensure no trailing '\n'
func NormalizeLineEnding(b []byte, ending string) []byte {
	if ending == "\n" {
		if len(b) > 0 && b[len(b)-1] == '\n' {
			return b
		}
		out := make([]byte, 0, len(b)+1)
		out = append(out, b...)
		return append(out, '\n')
	}
	// ending == ""
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}

// -----------------------------------------------------------------------------
// Extraction from record.Record
// -----------------------------------------------------------------------------
//
// record.Record carries its data as exported fields (Time, Level, Message,
// Data), not accessor methods, so extraction here is direct field access
// rather than duck-typed interfaces.

// ExtractTimestamp returns the record's event time.
func ExtractTimestamp(r *record.Record) time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.Time
}

// ExtractZapLevel maps the record's level to a zapcore.Level. A nil record
// defaults to Info.
func ExtractZapLevel(r *record.Record) zapcore.Level {
	if r == nil {
		return zapcore.InfoLevel
	}
	return MapAPIsLevel(r.Level)
}

// ExtractMessage returns the record's message, or empty.
func ExtractMessage(r *record.Record) string {
	if r == nil {
		return ""
	}
	return r.Message
}

// ExtractFields flattens the record's Data tree into a map[string]any for
// zap.Any to encode. This is the console/compact convenience path; the
// canonical wire Serializer (runtime/encoder/wire) walks Data directly and
// does not go through zap or reflection.
func ExtractFields(r *record.Record) map[string]any {
	if r == nil {
		return nil
	}
	entries := r.DataEntries()
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.Key] = valueToAny(e.Value)
	}
	return out
}

// valueToAny projects a value.Value back into a plain Go value for zap's
// reflection-based encoder. Synthetic markers (Circular/MaxDepth) and
// error shapes render as their display string.
func valueToAny(v avalue.Value) any {
	switch v.Kind {
	case avalue.KindNull:
		return nil
	case avalue.KindBool:
		return v.B
	case avalue.KindInt64:
		return v.I
	case avalue.KindFloat64:
		return v.F
	case avalue.KindString:
		return v.S
	case avalue.KindBytes:
		return v.Bin
	case avalue.KindTime:
		return v.T
	case avalue.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = valueToAny(e)
		}
		return out
	case avalue.KindMap:
		out := make(map[string]any, len(v.Map))
		for _, e := range v.Map {
			out[e.Key] = valueToAny(e.Value)
		}
		return out
	case avalue.KindError:
		if v.Err == nil {
			return nil
		}
		return v.Err.Message
	case avalue.KindCircular:
		return "[Circular]"
	case avalue.KindMaxDepth:
		return "[Max Depth Exceeded]"
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Level mapping (apis -> zap)
// -----------------------------------------------------------------------------

// MapAPIsLevel converts dlog's typed level to a zap level. It relies on
// a canonical String() representation of alevel.Level. If you later switch
// to numeric levels, this function can branch on those without changing callers.
func MapAPIsLevel(l alevel.Level) zapcore.Level {
	return MapStringLevel(strings.ToLower(l.String()))
}

// MapStringLevel converts common string level names to zapcore.Level.
// Unrecognized values fall back to Info.
func MapStringLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------
// Fields conversion (deterministic order)
// -----------------------------------------------------------------------------

// ToZapFields converts a generic map into a sorted slice of zap fields for
// stable, deterministic output. Keys are sorted lexicographically.
func ToZapFields(m map[string]any) []zapcore.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fs := make([]zapcore.Field, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, zap.Any(k, m[k])) // zap.Any returns zapcore.Field
	}
	return fs
}
