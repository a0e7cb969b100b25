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

package cloudwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	asink "dirpx.dev/dlog/apis/sink"
	"dirpx.dev/dlog/runtime/sink"
	"dirpx.dev/dlog/runtime/sink/httpbatch"
	"dirpx.dev/dlog/runtime/sinkerr"
)

// ResolveCredentials loads AWS credentials through the standard SDK chain
// (environment, shared config/credentials files, IMDS), the same
// resolution order the AWS_* env vars from spec §6 feed into.
func ResolveCredentials(ctx context.Context, region string) (Credentials, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return Credentials{}, fmt.Errorf("cloudwatch: load aws config: %w", err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("cloudwatch: retrieve aws credentials: %w", err)
	}
	return Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}, nil
}

// newLogStreamName builds "{hostname}-{yyyy-mm-dd}-{128-bit-random-hex}",
// per spec §4.9, to avoid collisions across replicas writing to the same
// log group concurrently.
func newLogStreamName(hostname string, now time.Time) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s-%s", hostname, now.UTC().Format("2006-01-02"), random)
}

type builder struct {
	opt           Options
	logGroup      string
	logStream     string
	mu            sync.Mutex
	sequenceToken *string
}

var _ httpbatch.RequestBuilder = (*builder)(nil)

// Serialize parses each already-encoded record entry to recover its
// timestamp and message, and sorts the resulting events ascending by
// timestamp per spec §4.9 and testable property 6.
func (b *builder) Serialize(entries [][]byte) ([]byte, string, error) {
	events := make([]inputLogEvent, 0, len(entries))
	for _, e := range entries {
		doc := bytes.TrimRight(e, "\n")
		var meta struct {
			Time int64 `json:"time"`
		}
		ts := time.Now().UnixMilli()
		if err := json.Unmarshal(doc, &meta); err == nil && meta.Time > 0 {
			ts = meta.Time
		}
		events = append(events, inputLogEvent{Timestamp: ts, Message: string(doc)})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	b.mu.Lock()
	token := b.sequenceToken
	b.mu.Unlock()

	body, err := json.Marshal(putLogEventsInput{
		LogGroupName:  b.logGroup,
		LogStreamName: b.logStream,
		LogEvents:     events,
		SequenceToken: token,
	})
	if err != nil {
		return nil, "", fmt.Errorf("cloudwatch: encode PutLogEvents: %w", err)
	}
	return body, "application/x-amz-json-1.1", nil
}

func (b *builder) Sign(ctx context.Context, req *http.Request, body []byte) error {
	req.Header.Set("x-amz-target", "Logs_20140328.PutLogEvents")
	req.Header.Set("content-type", "application/x-amz-json-1.1")
	signRequest(req, body, b.opt.Credentials.AccessKeyID, b.opt.Credentials.SecretAccessKey, b.opt.Credentials.SessionToken, b.opt.Region, time.Now())
	return nil
}

func (b *builder) Classify(resp *http.Response, respBody []byte) error {
	if resp.StatusCode < 300 {
		return nil
	}
	var apiErr apiError
	_ = json.Unmarshal(respBody, &apiErr)

	if apiErr.exceptionName() == "InvalidSequenceTokenException" && apiErr.ExpectedSequenceToken != "" {
		b.mu.Lock()
		token := apiErr.ExpectedSequenceToken
		b.sequenceToken = &token
		b.mu.Unlock()
		// The bounded one-shot re-drive happens by retrying this batch
		// with the corrected token; treating it as retriable lets
		// httpbatch requeue it once the token is already fixed above, so
		// the very next attempt carries the expected token.
		return sinkerr.Retriable(fmt.Errorf("cloudwatch: %s: %s", apiErr.exceptionName(), apiErr.Message))
	}

	switch apiErr.exceptionName() {
	case "ThrottlingException", "ServiceUnavailableException":
		return sinkerr.Retriable(fmt.Errorf("cloudwatch: %s: %s", apiErr.exceptionName(), apiErr.Message))
	}
	return sinkerr.ClassifyHTTPStatus(resp.StatusCode, string(respBody))
}

func (b *builder) Consume(resp *http.Response, respBody []byte) error {
	var out putLogEventsOutput
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("cloudwatch: decode PutLogEvents response: %w", err)
	}
	b.mu.Lock()
	b.sequenceToken = &out.NextSequenceToken
	b.mu.Unlock()
	return nil
}

// New builds a CloudWatch Logs sink. It creates the log group/stream if
// absent (treating ResourceAlreadyExistsException as success) before
// wiring the PutLogEvents batcher.
func New(ctx context.Context, opt Options) (asink.Sink, error) {
	opt.applyDefaults()
	client := opt.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	b := &builder{opt: opt, logGroup: opt.LogGroup, logStream: newLogStreamName(opt.Hostname, time.Now())}

	if err := b.ensureLogGroupAndStream(ctx, client); err != nil {
		return nil, err
	}

	bat, err := httpbatch.New(httpbatch.Options{
		Name:          nameOr(opt.Name, "cloudwatch"),
		Method:        http.MethodPost,
		URL:           opt.endpoint(),
		Client:        client,
		Builder:       b,
		BatchSize:     opt.BatchSize,
		BatchInterval: opt.BatchInterval,
		MaxBodyBytes:  opt.MaxBodyBytes,
		MaxRetries:    opt.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return bat, nil
}

func (b *builder) ensureLogGroupAndStream(ctx context.Context, client *http.Client) error {
	if err := b.callAction(ctx, client, "CreateLogGroup", createLogGroupInput{LogGroupName: b.logGroup}); err != nil {
		return err
	}
	if err := b.callAction(ctx, client, "CreateLogStream", createLogStreamInput{LogGroupName: b.logGroup, LogStreamName: b.logStream}); err != nil {
		return err
	}
	return nil
}

// callAction issues a single signed JSON-1.1 action call, used only for the
// one-time log group/stream initialization (not part of the batched
// PutLogEvents path).
func (b *builder) callAction(ctx context.Context, client *http.Client, action string, input any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("cloudwatch: encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opt.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cloudwatch: build %s request: %w", action, err)
	}
	req.Header.Set("x-amz-target", "Logs_20140328."+action)
	req.Header.Set("content-type", "application/x-amz-json-1.1")
	signRequest(req, body, b.opt.Credentials.AccessKeyID, b.opt.Credentials.SecretAccessKey, b.opt.Credentials.SessionToken, b.opt.Region, time.Now())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cloudwatch: %s: %w", action, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 300 {
		return nil
	}
	var apiErr apiError
	_ = json.Unmarshal(respBody, &apiErr)
	if apiErr.exceptionName() == "ResourceAlreadyExistsException" {
		return nil
	}
	return fmt.Errorf("cloudwatch: %s failed: %s: %s", action, apiErr.exceptionName(), apiErr.Message)
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func init() {
	sink.Register("sink", "cloudwatch", func(ctx context.Context, name string, spec asink.Specification) (asink.Sink, error) {
		opt := Options{Name: name}
		if spec.Labels != nil {
			opt.Region = spec.Labels["region"]
			opt.LogGroup = spec.Labels["log_group"]
			opt.Hostname = spec.Labels["hostname"]
		}
		creds, err := ResolveCredentials(ctx, opt.Region)
		if err != nil {
			return nil, err
		}
		opt.Credentials = creds
		opt.MaxRetries = spec.Retry.MaxRetries
		return New(ctx, opt)
	})
}
