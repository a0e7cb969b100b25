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

package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
	"dirpx.dev/dlog/runtime/sink/httpbatch"
	"dirpx.dev/dlog/runtime/sinkerr"
)

// entryMeta is the handful of fields pulled out of an already-encoded
// record to drive index naming and document addressing; everything else in
// the record travels through as the bulk document body unmodified.
type entryMeta struct {
	Time int64  `json:"time"`
	ID   string `json:"id"`
	ID2  string `json:"_id"`
}

func (m entryMeta) id() string {
	if m.ID2 != "" {
		return m.ID2
	}
	return m.ID
}

type builder struct {
	opt Options
}

var _ httpbatch.RequestBuilder = (*builder)(nil)
var _ httpbatch.PartialClassifier = (*builder)(nil)

func (b *builder) Serialize(entries [][]byte) ([]byte, string, error) {
	var buf bytes.Buffer
	for _, e := range entries {
		doc := bytes.TrimRight(e, "\n")

		var meta entryMeta
		ts := time.Now()
		if err := json.Unmarshal(doc, &meta); err == nil && meta.Time > 0 {
			ts = time.UnixMilli(meta.Time)
		}
		index := resolveIndexName(b.opt.IndexPattern, ts)

		action := map[string]any{"_index": index}
		if id := meta.id(); id != "" {
			action["_id"] = id
		}
		actionLine, err := json.Marshal(map[string]any{"index": action})
		if err != nil {
			return nil, "", fmt.Errorf("elasticsearch: encode bulk action: %w", err)
		}

		buf.Write(actionLine)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), "application/x-ndjson", nil
}

func (b *builder) Sign(ctx context.Context, req *http.Request, body []byte) error {
	if b.opt.APIKey != "" {
		req.Header.Set("Authorization", "ApiKey "+b.opt.APIKey)
		return nil
	}
	if b.opt.Username != "" {
		req.SetBasicAuth(b.opt.Username, b.opt.Password)
	}
	return nil
}

func (b *builder) Classify(resp *http.Response, respBody []byte) error {
	return sinkerr.ClassifyHTTPStatus(resp.StatusCode, string(respBody))
}

func (b *builder) Consume(resp *http.Response, respBody []byte) error { return nil }

type bulkResponse struct {
	Errors bool       `json:"errors"`
	Items  []bulkItem `json:"items"`
}

type bulkItem struct {
	Index  *bulkItemAction `json:"index,omitempty"`
	Create *bulkItemAction `json:"create,omitempty"`
}

type bulkItemAction struct {
	Status int            `json:"status"`
	Error  *bulkItemError `json:"error,omitempty"`
}

type bulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ClassifyBatch implements httpbatch.PartialClassifier: spec §4.8 requires
// walking the bulk response's items in original order, re-queuing only
// entries whose per-document error is retriable, and ignoring any item past
// the original batch length (a malformed or truncated response shouldn't
// panic the sink).
func (b *builder) ClassifyBatch(resp *http.Response, respBody []byte, entries [][]byte) (httpbatch.PartialResult, error) {
	if resp.StatusCode >= 400 {
		return httpbatch.PartialResult{}, sinkerr.ClassifyHTTPStatus(resp.StatusCode, string(respBody))
	}

	var parsed bulkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return httpbatch.PartialResult{}, sinkerr.NonRetriable(fmt.Errorf("elasticsearch: decode bulk response: %w", err))
	}
	if !parsed.Errors {
		return httpbatch.PartialResult{}, nil
	}

	var result httpbatch.PartialResult
	for i, item := range parsed.Items {
		if i >= len(entries) {
			break
		}
		action := item.Index
		if action == nil {
			action = item.Create
		}
		if action == nil || action.Status < 300 {
			continue
		}
		reason := ""
		if action.Error != nil {
			reason = action.Error.Type + ": " + action.Error.Reason
		}
		if sinkerr.IsRetriable(sinkerr.ClassifyHTTPStatus(action.Status, reason)) {
			result.Retry = append(result.Retry, entries[i])
		} else {
			result.Dropped++
		}
	}
	return result, nil
}

// New builds an Elasticsearch bulk sink atop httpbatch.Batcher.
func New(opt Options) (asink.Sink, error) {
	opt.applyDefaults()
	b, err := httpbatch.New(httpbatch.Options{
		Name:          nameOr(opt.Name, "elasticsearch"),
		Method:        http.MethodPost,
		URL:           strings.TrimRight(opt.Endpoint, "/") + "/_bulk",
		Client:        opt.Client,
		Builder:       &builder{opt: opt},
		BatchSize:     opt.BatchSize,
		BatchInterval: opt.BatchInterval,
		MaxBodyBytes:  opt.MaxBodyBytes,
		MaxRetries:    opt.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func init() {
	sink.Register("sink", "elasticsearch", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		opt := Options{Name: name}
		if spec.Labels != nil {
			opt.Endpoint = spec.Labels["endpoint"]
			if p := spec.Labels["index_pattern"]; p != "" {
				opt.IndexPattern = p
			}
			opt.Username = spec.Labels["username"]
			opt.Password = spec.Labels["password"]
			opt.APIKey = spec.Labels["api_key"]
		}
		opt.MaxRetries = spec.Retry.MaxRetries
		return New(opt)
	})
}
