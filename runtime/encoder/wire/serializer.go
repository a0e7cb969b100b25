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

package wire

import (
	"bytes"
	"encoding/base64"
	"io"
	"math"
	"strconv"
	"sync"

	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/apis/value"
	"dirpx.dev/dlog/runtime/encoder"
)

// DatePolicy selects how value.KindTime values serialize.
type DatePolicy uint8

const (
	// DateEpochMillis renders time.Time as an integer epoch-millisecond.
	DateEpochMillis DatePolicy = iota
	// DateISO8601 renders time.Time as an RFC3339-with-millis string.
	DateISO8601
)

// maxInt53 is the largest integer a JSON number can round-trip through an
// IEEE-754 double without loss: 2^53.
const maxInt53 = int64(1) << 53

// defaultMaxDepth bounds recursion into List/Map values independent of the
// depth bound value.FromAny already applies at ingestion; a record built
// by hand (not through FromAny) gets the same protection here.
const defaultMaxDepth = 32

// defaultMaxBytes is the record size cap (spec §3): oversize records
// truncate to a placeholder body carrying only the required envelope with
// the __truncated__ marker set.
const defaultMaxBytes = 256 * 1024

// Options configures a Serializer.
type Options struct {
	DatePolicy DatePolicy
	MaxDepth   int
	MaxBytes   int
	// KeyCacheSize bounds the escaped-key LRU. Zero uses a default of 512.
	KeyCacheSize int
}

// Serializer is dlog's canonical encoder.Encoder: one JSON object per
// record, field order: level, levelLabel, time, hostname, pid, name?,
// ambient context fields (non-empty only), flattened Data entries, msg,
// then __truncated__ when truncation occurred.
type Serializer struct {
	opt   Options
	pool  sync.Pool // *bytes.Buffer
	cache *keyCache
}

var _ encoder.Encoder = (*Serializer)(nil)

// New builds a Serializer with defaults applied for zero-valued Options.
func New(opt Options) *Serializer {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = defaultMaxDepth
	}
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = defaultMaxBytes
	}
	if opt.KeyCacheSize <= 0 {
		opt.KeyCacheSize = 512
	}
	s := &Serializer{opt: opt, cache: newKeyCache(opt.KeyCacheSize)}
	s.pool.New = func() any { return new(bytes.Buffer) }
	return s
}

func (s *Serializer) Name() string        { return "json(wire)" }
func (s *Serializer) ContentType() string { return "application/json" }

// Encode writes one NDJSON line for r to w. If the serialized size exceeds
// opt.MaxBytes, the body is replaced by a minimal envelope carrying
// record.TruncatedMarkerKey=true instead of being written raw.
func (s *Serializer) Encode(r *record.Record, w io.Writer) error {
	buf := s.pool.Get().(*bytes.Buffer)
	buf.Reset()
	defer s.pool.Put(buf)

	s.writeRecord(buf, r, false)

	if buf.Len() > s.opt.MaxBytes {
		buf.Reset()
		s.writeRecord(buf, r, true)
	}
	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())
	return err
}

func (s *Serializer) writeRecord(buf *bytes.Buffer, r *record.Record, truncated bool) {
	buf.WriteByte('{')
	first := true
	kv := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		s.writeKey(buf, key)
		buf.WriteByte(':')
	}

	kv("level")
	buf.WriteString(strconv.Itoa(r.Level.Weight()))

	kv("levelLabel")
	writeJSONString(buf, r.Level.String())

	kv("time")
	buf.WriteString(strconv.FormatInt(r.Time.UnixMilli(), 10))

	kv("hostname")
	writeJSONString(buf, r.Host.Hostname)

	kv("pid")
	buf.WriteString(strconv.Itoa(r.Host.PID))

	if r.Host.Name != "" {
		kv("name")
		writeJSONString(buf, r.Host.Name)
	}

	s.writeContextFields(buf, r, kv)

	if !truncated {
		for _, e := range r.DataEntries() {
			kv(e.Key)
			s.writeValue(buf, e.Value, 0)
		}
	}

	kv("msg")
	writeJSONString(buf, r.Message)

	if truncated {
		kv(record.TruncatedMarkerKey)
		buf.WriteString("true")
	}

	buf.WriteByte('}')
}

func (s *Serializer) writeContextFields(buf *bytes.Buffer, r *record.Record, kv func(string)) {
	c := r.Ctx
	str := func(key, val string) {
		if val == "" {
			return
		}
		kv(key)
		writeJSONString(buf, val)
	}
	str("correlation_id", c.CorrelationID)
	str("trace_id", c.TraceID)
	str("span_id", c.SpanID)
	str("service", c.Service)
	str("version", c.Version)
	str("env", c.Env)
	str("node_id", c.NodeID)
	str("instance", c.Instance)
	str("region", c.Region)
	str("component", c.Component)
	str("subsystem", c.Subsystem)
	str("operation", c.Operation)
}

// writeKey writes a JSON string key, consulting the escaped-key cache
// first since log field names repeat across records far more than their
// values do.
func (s *Serializer) writeKey(buf *bytes.Buffer, key string) {
	if esc, ok := s.cache.get(key); ok {
		buf.WriteString(esc)
		return
	}
	var tmp bytes.Buffer
	writeJSONString(&tmp, key)
	esc := tmp.String()
	s.cache.put(key, esc)
	buf.WriteString(esc)
}

func (s *Serializer) writeValue(buf *bytes.Buffer, v value.Value, depth int) {
	if depth > s.opt.MaxDepth {
		writeJSONString(buf, "[Max Depth Exceeded]")
		return
	}
	switch v.Kind {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		if v.B {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.KindInt64:
		writeInt(buf, v.I)
	case value.KindFloat64:
		writeFloat(buf, v.F)
	case value.KindString:
		writeJSONString(buf, v.S)
	case value.KindBytes:
		writeJSONString(buf, base64.StdEncoding.EncodeToString(v.Bin))
	case value.KindTime:
		s.writeTime(buf, v)
	case value.KindList:
		buf.WriteByte('[')
		for i, e := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			s.writeValue(buf, e, depth+1)
		}
		buf.WriteByte(']')
	case value.KindMap:
		buf.WriteByte('{')
		for i, e := range v.Map {
			if i > 0 {
				buf.WriteByte(',')
			}
			s.writeKey(buf, e.Key)
			buf.WriteByte(':')
			s.writeValue(buf, e.Value, depth+1)
		}
		buf.WriteByte('}')
	case value.KindError:
		writeErrorShape(buf, v.Err)
	case value.KindCircular:
		writeJSONString(buf, "[Circular]")
	case value.KindMaxDepth:
		writeJSONString(buf, "[Max Depth Exceeded]")
	default:
		buf.WriteString("null")
	}
}

func (s *Serializer) writeTime(buf *bytes.Buffer, v value.Value) {
	if s.opt.DatePolicy == DateISO8601 {
		writeJSONString(buf, v.T.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
		return
	}
	buf.WriteString(strconv.FormatInt(v.T.UnixMilli(), 10))
}

// writeInt applies the ±2^53 boundary: within range, plain decimal; outside
// it, a quoted decimal string with a trailing "n" so consumers that decode
// JSON numbers as float64 don't silently lose precision.
func writeInt(buf *bytes.Buffer, i int64) {
	if i <= maxInt53 && i >= -maxInt53 {
		buf.WriteString(strconv.FormatInt(i, 10))
		return
	}
	buf.WriteByte('"')
	buf.WriteString(strconv.FormatInt(i, 10))
	buf.WriteByte('n')
	buf.WriteByte('"')
}

// writeFloat renders non-finite floats as null per policy.
func writeFloat(buf *bytes.Buffer, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writeErrorShape(buf *bytes.Buffer, e *value.ErrorShape) {
	if e == nil {
		buf.WriteString("null")
		return
	}
	buf.WriteByte('{')
	buf.WriteString(`"type":`)
	writeJSONString(buf, e.Type)
	buf.WriteString(`,"message":`)
	writeJSONString(buf, e.Message)
	if e.Stack != "" {
		buf.WriteString(`,"stack":`)
		writeJSONString(buf, e.Stack)
	}
	if e.Cause != nil {
		buf.WriteString(`,"cause":`)
		writeErrorShape(buf, e.Cause)
	}
	buf.WriteByte('}')
}

// writeJSONString escapes s per the JSON spec: control characters below
// 0x20 as \uXXXX, the two structural characters, and the backslash.
// Already-valid surrogate pairs in s pass through unchanged.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			const hex = "0123456789abcdef"
			buf.WriteByte(hex[(r>>4)&0xf])
			buf.WriteByte(hex[r&0xf])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
