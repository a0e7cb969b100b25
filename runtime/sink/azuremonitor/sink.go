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

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
	"dirpx.dev/dlog/runtime/sink/httpbatch"
	"dirpx.dev/dlog/runtime/sinkerr"
)

type builder struct {
	opt Options
}

var _ httpbatch.RequestBuilder = (*builder)(nil)

func (b *builder) buildEnvelope(raw []byte) (map[string]any, error) {
	doc := bytes.TrimRight(raw, "\n")
	var full map[string]any
	if err := json.Unmarshal(doc, &full); err != nil {
		return nil, fmt.Errorf("azuremonitor: decode record: %w", err)
	}

	tsMs, _ := full["time"].(float64)
	ts := time.UnixMilli(int64(tsMs)).UTC().Format(time.RFC3339Nano)

	payload := map[string]any{}
	for k, v := range full {
		if !envelopeKeys[k] {
			payload[k] = v
		}
	}
	if msg, ok := full["msg"]; ok {
		payload["msg"] = msg
	}

	telemetryType := inferTelemetryType(payload)
	ikey := b.opt.Connection.InstrumentationKey

	return map[string]any{
		"ver":        1,
		"name":       fmt.Sprintf("Microsoft.ApplicationInsights.%s.%s", ikey, telemetryType),
		"time":       ts,
		"sampleRate": 100,
		"iKey":       ikey,
		"tags":       map[string]any{},
		"data": map[string]any{
			"baseType": baseTypeFor(telemetryType),
			"baseData": payload,
		},
	}, nil
}

// Serialize builds NDJSON telemetry envelopes and gzip-compresses the body,
// per spec §4.11's "Content-Encoding: gzip" requirement.
func (b *builder) Serialize(entries [][]byte) ([]byte, string, error) {
	var ndjson bytes.Buffer
	for _, e := range entries {
		env, err := b.buildEnvelope(e)
		if err != nil {
			return nil, "", err
		}
		line, err := json.Marshal(env)
		if err != nil {
			return nil, "", fmt.Errorf("azuremonitor: encode envelope: %w", err)
		}
		ndjson.Write(line)
		ndjson.WriteByte('\n')
	}

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write(ndjson.Bytes()); err != nil {
		return nil, "", fmt.Errorf("azuremonitor: gzip body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("azuremonitor: gzip body: %w", err)
	}
	return gz.Bytes(), "application/x-json-stream", nil
}

func (b *builder) Sign(ctx context.Context, req *http.Request, body []byte) error {
	req.Header.Set("Content-Encoding", "gzip")
	return nil
}

func (b *builder) Classify(resp *http.Response, respBody []byte) error {
	return sinkerr.ClassifyHTTPStatus(resp.StatusCode, string(respBody))
}

func (b *builder) Consume(resp *http.Response, respBody []byte) error { return nil }

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// New builds an Azure Monitor (Application Insights) sink atop
// httpbatch.Batcher.
func New(opt Options) (asink.Sink, error) {
	opt.applyDefaults()
	b, err := httpbatch.New(httpbatch.Options{
		Name:          nameOr(opt.Name, "azuremonitor"),
		Method:        http.MethodPost,
		URL:           opt.trackURL(),
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

func init() {
	sink.Register("sink", "azuremonitor", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		opt := Options{Name: name}
		if spec.Labels != nil {
			if cs, err := ParseConnectionString(spec.Labels["connection_string"]); err == nil {
				opt.Connection = cs
			} else {
				return nil, err
			}
		}
		opt.MaxRetries = spec.Retry.MaxRetries
		return New(opt)
	})
}
