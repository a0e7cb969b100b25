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

// Package wire implements dlog's canonical, vendor-neutral record
// serializer: the one format guaranteed to be bit-exact across the
// console, file, and every cloud sink, independent of zap's own framing.
//
// Unlike runtime/encoder/json and runtime/encoder/console (both of which
// delegate to zapcore and its reflection-based zap.Any field encoding),
// Serializer walks a record's apis/value.Value tree directly: integer
// range handling, non-finite float policy, control-character escaping,
// byte/base64, and the Circular/MaxDepth markers value.FromAny already
// produced at ingestion are all applied here with no reflection involved.
package wire
