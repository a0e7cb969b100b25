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

package redact

import (
	"regexp"
	"sort"
	"strings"

	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/apis/value"
)

// maxScannedStringLen bounds how much of a string-valued leaf gets run
// through the pattern scanners. Past this size the whole value is replaced
// wholesale instead of pattern-matched, so a single oversized field can't
// turn redaction into the pipeline's bottleneck.
const maxScannedStringLen = 100 * 1024

const oversizedMask = "[REDACTED_OVERSIZED_CONTENT]"
const fieldNameMask = "[REDACTED]"

// Pattern is a single value-pattern rule: a compiled regexp and the function
// that turns a match into its replacement text. Mask receives the exact
// matched substring and must be idempotent: Mask(Mask(s)) producing a
// different result than Mask(s) would let a record that passes through two
// Redactors in series keep leaking structure.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
	Mask func(match string) string
}

// Options configures a Redactor.
type Options struct {
	// FieldNameSubstrings are matched case-insensitively against map keys.
	// A key containing any of these has its entire value replaced,
	// regardless of kind.
	FieldNameSubstrings []string
	// Patterns are evaluated, in order, against every string-valued leaf
	// whose key did not already match FieldNameSubstrings. Order is also
	// priority: when two patterns match overlapping spans, the one earlier
	// in this slice wins.
	Patterns []Pattern
	// MaxStringLen overrides maxScannedStringLen when non-zero.
	MaxStringLen int
}

// DefaultFieldNames is the field-name substring list used by NewDefault.
var DefaultFieldNames = []string{
	"password", "passwd", "secret", "token", "apikey", "api_key",
	"authorization", "credential", "private_key", "privatekey", "access_key",
}

// DefaultPatterns is the value-pattern list used by NewDefault, in priority
// order. Quantifiers are bounded (no unbounded `+`/`*` over attacker-
// controlled spans) so a pathological string costs work linear in its
// length even though RE2 already guarantees that independent of pattern
// shape.
var DefaultPatterns = []Pattern{
	{Name: "aws_access_key", Re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), Mask: maskStatic("[REDACTED_AWS_KEY]")},
	{Name: "jwt", Re: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,256}\.[A-Za-z0-9_-]{8,256}\.[A-Za-z0-9_-]{8,256}\b`), Mask: maskStatic("[REDACTED_JWT]")},
	{Name: "email", Re: regexp.MustCompile(`\b[A-Za-z0-9._%+\-]{1,64}@[A-Za-z0-9.\-]{1,255}\.[A-Za-z]{2,24}\b`), Mask: maskEmail},
	{Name: "ssn", Re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), Mask: maskStatic("[REDACTED_SSN]")},
	{Name: "credit_card", Re: regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{1,4}\b`), Mask: maskStatic("[REDACTED_CARD]")},
	{Name: "phone", Re: regexp.MustCompile(`\b\+?\d{0,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), Mask: maskStatic("[REDACTED_PHONE]")},
	{Name: "ipv4", Re: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), Mask: maskStatic("***.***.***.***")},
}

func maskStatic(s string) func(string) string {
	return func(string) string { return s }
}

// maskEmail keeps the first character of the local part and the first
// character of the domain's first label plus its TLD, e.g.
// "bob@example.com" -> "b***@e***.com". Because the output is derived only
// from characters that survive into the output, re-running maskEmail on an
// already-masked string reproduces it exactly.
func maskEmail(match string) string {
	at := strings.IndexByte(match, '@')
	if at <= 0 || at == len(match)-1 {
		return "***@***.***"
	}
	local := match[:at]
	domain := match[at+1:]
	labels := strings.Split(domain, ".")
	if len(labels) < 2 || len(labels[0]) == 0 {
		return "***@***.***"
	}
	tld := labels[len(labels)-1]
	return string(local[0]) + "***@" + string(labels[0][0]) + "***." + tld
}

// Redactor masks secret- and PII-shaped values out of a record.Record's
// structured data before it reaches an encoder or sink.
type Redactor struct {
	fieldNames []string
	patterns   []Pattern
	maxLen     int
}

// New builds a Redactor from explicit Options.
func New(opt Options) *Redactor {
	maxLen := opt.MaxStringLen
	if maxLen <= 0 {
		maxLen = maxScannedStringLen
	}
	names := make([]string, len(opt.FieldNameSubstrings))
	for i, n := range opt.FieldNameSubstrings {
		names[i] = strings.ToLower(n)
	}
	return &Redactor{fieldNames: names, patterns: opt.Patterns, maxLen: maxLen}
}

// NewDefault builds a Redactor using DefaultFieldNames and DefaultPatterns.
func NewDefault() *Redactor {
	return New(Options{FieldNameSubstrings: DefaultFieldNames, Patterns: DefaultPatterns})
}

// Redact returns a copy of rec with its Data tree masked. rec itself is not
// mutated; record.Record is treated as immutable throughout the pipeline.
func (r *Redactor) Redact(rec record.Record) record.Record {
	if rec.Data.Kind != value.KindMap {
		return rec
	}
	return rec.WithData(r.redactValue(rec.Data, ""))
}

func (r *Redactor) redactValue(v value.Value, key string) value.Value {
	if r.keyMatches(key) {
		return value.String(fieldNameMask)
	}
	switch v.Kind {
	case value.KindString:
		return value.String(r.redactString(v.S))
	case value.KindList:
		out := make([]value.Value, len(v.List))
		for i, item := range v.List {
			out[i] = r.redactValue(item, key)
		}
		return value.List(out...)
	case value.KindMap:
		out := make([]value.MapEntry, len(v.Map))
		for i, entry := range v.Map {
			out[i] = value.MapEntry{Key: entry.Key, Value: r.redactValue(entry.Value, entry.Key)}
		}
		return value.Mapping(out...)
	default:
		return v
	}
}

func (r *Redactor) keyMatches(key string) bool {
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	for _, n := range r.fieldNames {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

type span struct {
	start, end int
	mask       string
}

// redactString runs the oversize shortcut and then the value-pattern layer.
// Pattern matching is idempotent: masked output for every DefaultPatterns
// entry either stops matching its own pattern (static masks, which contain
// no digits/domain shape) or reproduces byte-for-byte under re-application
// (maskEmail). A second Redact pass over already-redacted data is therefore
// a no-op.
func (r *Redactor) redactString(s string) string {
	if len(s) > r.maxLen {
		return oversizedMask
	}
	if len(r.patterns) == 0 {
		return s
	}

	// candidates is built pattern-by-pattern in r.patterns order, so its
	// arrival order already encodes priority: earlier pattern, then
	// left-to-right within that pattern's matches.
	var candidates []span
	for _, p := range r.patterns {
		for _, loc := range p.Re.FindAllStringIndex(s, -1) {
			candidates = append(candidates, span{start: loc[0], end: loc[1], mask: p.Mask(s[loc[0]:loc[1]])})
		}
	}
	if len(candidates) == 0 {
		return s
	}

	accepted := resolveOverlaps(candidates)
	if len(accepted) == 0 {
		return s
	}

	// Apply back-to-front by descending start so each replacement's byte
	// offsets are still valid against the (still being mutated) output;
	// earlier replacements never shift the indices of later ones.
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start > accepted[j].start })
	out := s
	for _, sp := range accepted {
		out = out[:sp.start] + sp.mask + out[sp.end:]
	}
	return out
}

// resolveOverlaps keeps a candidate only if it does not overlap a span
// already accepted from an earlier (higher-priority) candidate. candidates
// must already be in priority order: "first match wins" means earlier
// pattern, independent of where in the string either match falls.
func resolveOverlaps(candidates []span) []span {
	var accepted []span
	for _, c := range candidates {
		overlaps := false
		for _, a := range accepted {
			if c.start < a.end && a.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
