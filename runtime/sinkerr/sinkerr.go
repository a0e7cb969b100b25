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

// Package sinkerr classifies sink delivery failures as retriable or not,
// the distinction every HTTP-backed sink (httpbatch and everything built
// on it) needs to decide between a backoff-and-retry and a drop-and-count.
package sinkerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error wraps an underlying failure with the retriable/non-retriable
// classification from spec §4.5: throttling, 5xx, network timeouts,
// connection resets and DNS failures are retriable; 4xx other than 429,
// auth failures, malformed input and signature errors are not.
type Error struct {
	Retriable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Retriable {
		return fmt.Sprintf("sinkerr: retriable: %v", e.Err)
	}
	return fmt.Sprintf("sinkerr: non-retriable: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable wraps err as a retriable Error.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Retriable: true, Err: err}
}

// NonRetriable wraps err as a non-retriable Error.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Retriable: false, Err: err}
}

// IsRetriable reports whether err should be retried. Errors not wrapped as
// *Error default to non-retriable: an unclassified error is safer treated
// as a hard failure than silently retried forever.
func IsRetriable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retriable
	}
	return false
}

// ClassifyHTTPStatus maps an HTTP status code to an *Error per spec §4.5:
// 429 and 5xx are retriable (throttling, server-side failure); any other
// 4xx is not.
func ClassifyHTTPStatus(status int, body string) error {
	if status < 400 {
		return nil
	}
	err := fmt.Errorf("http status %d: %s", status, body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return Retriable(err)
	}
	return NonRetriable(err)
}

// ClassifyNetworkError maps any transport-level failure (timeouts,
// connection resets, DNS failures) to retriable: a request that never
// reached the server is always safe to retry, unlike an HTTP response the
// server deliberately sent back.
func ClassifyNetworkError(err error) error {
	if err == nil {
		return nil
	}
	return Retriable(err)
}

// DroppedBatchError reports that a pending batch was dropped after its
// consecutive retriable failures reached the sink's configured maximum.
type DroppedBatchError struct {
	Count int
	Err   error
}

func (e *DroppedBatchError) Error() string {
	return fmt.Sprintf("sinkerr: dropped_batch: dropped %d entries after retries exhausted: %v", e.Count, e.Err)
}

func (e *DroppedBatchError) Unwrap() error { return e.Err }

// DroppedBatch wraps the last send failure as a structured dropped_batch
// error for count entries that are being dropped because retries exhausted.
func DroppedBatch(count int, err error) error {
	return &DroppedBatchError{Count: count, Err: err}
}
