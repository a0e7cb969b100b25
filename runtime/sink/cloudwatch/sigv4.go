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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const service = "logs"

// signRequest signs req in place using AWS Signature V4, per spec §4.9's
// HMAC-SHA256("AWS4"+secret, date) -> region -> service -> "aws4_request"
// key derivation chain. req must already carry every header that should be
// part of the signature (x-amz-target, content-type, x-amz-date, and
// x-amz-security-token if a session token is used).
func signRequest(req *http.Request, body []byte, accessKey, secretKey, sessionToken, region string, now time.Time) {
	amzDate := now.UTC().Format("20060102T150405Z")
	dateStamp := now.UTC().Format("20060102")

	req.Header.Set("host", req.URL.Host)
	req.Header.Set("x-amz-date", amzDate)
	if sessionToken != "" {
		req.Header.Set("x-amz-security-token", sessionToken)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req.Header)
	payloadHash := hexSHA256(body)

	uri := req.URL.Path
	if uri == "" {
		uri = "/"
	}

	canonicalRequest := strings.Join([]string{
		req.Method,
		uri,
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(secretKey, dateStamp, region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authHeader := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKey, credentialScope, signedHeaders, signature,
	)
	req.Header.Set("Authorization", authHeader)
}

func deriveSigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(data))
	return m.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalizeHeaders lowercases, trims and sorts req's headers, returning
// the newline-joined "key:value" canonical form and the ";"-joined signed
// header list, per spec §4.9's "headers lowercased and sorted".
func canonicalizeHeaders(h http.Header) (canonical string, signed string) {
	keys := make([]string, 0, len(h))
	lower := make(map[string]string, len(h))
	for k := range h {
		lk := strings.ToLower(k)
		keys = append(keys, lk)
		lower[lk] = strings.TrimSpace(h.Get(k))
	}
	sort.Strings(keys)

	var cb strings.Builder
	for _, k := range keys {
		cb.WriteString(k)
		cb.WriteByte(':')
		cb.WriteString(lower[k])
		cb.WriteByte('\n')
	}
	return cb.String(), strings.Join(keys, ";")
}
