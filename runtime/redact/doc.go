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

// Package redact masks secret/PII values in a record.Record before
// encoding. It runs as a pipeline stage (apis/pipeline/stage.Stage) ahead
// of the encoder, the same position the teacher reserves for a "redact"
// plugin (see apis/pipeline/plugin.Plugin's Redactor role).
//
// Two independent layers run over every record:
//
//  1. Field-name masking: any map key whose name contains one of a
//     configured set of case-insensitive substrings has its entire value
//     replaced by a mask token, regardless of the value's kind.
//  2. Value-pattern masking: every remaining string-valued leaf is scanned
//     against a list of pre-compiled regular expressions (email, SSN,
//     credit card, phone, IPv4, AWS access key, JWT, generic API key).
//     Overlapping matches are resolved by pattern priority (declaration
//     order); replacement is applied back-to-front by descending match
//     start so earlier replacements never shift the offsets of later ones.
package redact
