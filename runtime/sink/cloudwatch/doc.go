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

// Package cloudwatch writes log records to AWS CloudWatch Logs via
// PutLogEvents, signed with AWS Signature V4 and driven by httpbatch's
// shared batching scaffolding. Credentials are resolved through the
// standard AWS SDK chain (environment, shared config, IMDS); the wire
// request itself is the literal `Logs_20140328.PutLogEvents` JSON protocol
// call, signed by hand so the exact SigV4 derivation is under this
// package's control rather than hidden behind a client.
package cloudwatch
