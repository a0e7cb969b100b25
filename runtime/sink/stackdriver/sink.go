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

package stackdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
	"dirpx.dev/dlog/runtime/sink/httpbatch"
	"dirpx.dev/dlog/runtime/sinkerr"
)

// envelopeKeys are the fields every wire-encoded record carries outside of
// user data; everything else becomes jsonPayload.
var envelopeKeys = map[string]bool{
	"level": true, "levelLabel": true, "time": true, "hostname": true,
	"pid": true, "name": true, "msg": true, "__truncated__": true,
}

type builder struct {
	opt    Options
	tokens *tokenCache
}

var _ httpbatch.RequestBuilder = (*builder)(nil)

func (b *builder) buildEntry(raw []byte) (map[string]any, error) {
	doc := bytes.TrimRight(raw, "\n")
	var full map[string]any
	if err := json.Unmarshal(doc, &full); err != nil {
		return nil, fmt.Errorf("stackdriver: decode record: %w", err)
	}

	weight, _ := full["level"].(float64)
	msg, _ := full["msg"].(string)
	tsMs, _ := full["time"].(float64)
	ts := time.UnixMilli(int64(tsMs)).UTC().Format(time.RFC3339Nano)

	payload := map[string]any{}
	for k, v := range full {
		if !envelopeKeys[k] {
			payload[k] = v
		}
	}

	entry := map[string]any{
		"logName":   fmt.Sprintf("projects/%s/logs/%s", b.opt.ProjectID, url.PathEscape(b.opt.LogName)),
		"severity":  severityFromWeight(int(weight)),
		"timestamp": ts,
	}
	if len(payload) == 0 {
		entry["textPayload"] = msg
	} else {
		payload["msg"] = msg
		entry["jsonPayload"] = payload
	}
	return entry, nil
}

func (b *builder) Serialize(entries [][]byte) ([]byte, string, error) {
	wireEntries := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		entry, err := b.buildEntry(e)
		if err != nil {
			return nil, "", err
		}
		wireEntries = append(wireEntries, entry)
	}
	body, err := json.Marshal(map[string]any{
		"entries":        wireEntries,
		"partialSuccess": true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("stackdriver: encode entries.write body: %w", err)
	}
	return body, "application/json", nil
}

func (b *builder) Sign(ctx context.Context, req *http.Request, body []byte) error {
	token, err := b.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
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

// New builds a Stackdriver (Cloud Logging) sink atop httpbatch.Batcher.
func New(opt Options) (asink.Sink, error) {
	opt.applyDefaults()
	client := opt.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	tokens, err := newTokenCache(opt.ServiceAccount, opt.TokenURL, client)
	if err != nil {
		return nil, err
	}

	b, err := httpbatch.New(httpbatch.Options{
		Name:          nameOr(opt.Name, "stackdriver"),
		Method:        http.MethodPost,
		URL:           opt.EntriesEndpoint,
		Client:        client,
		Builder:       &builder{opt: opt, tokens: tokens},
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
	sink.Register("sink", "stackdriver", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		opt := Options{Name: name}
		if spec.Labels != nil {
			opt.ProjectID = spec.Labels["project_id"]
			opt.LogName = spec.Labels["log_name"]
			opt.ServiceAccount.ClientEmail = spec.Labels["client_email"]
			opt.ServiceAccount.PrivateKey = spec.Labels["private_key"]
		}
		opt.MaxRetries = spec.Retry.MaxRetries
		return New(opt)
	})
}
