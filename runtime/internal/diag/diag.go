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

// Package diag is dlog's last-resort logger: the one channel record-level
// and sink-level errors are reported through when they must never
// propagate back to the caller of Log. It writes to stderr only and never
// touches the configured sinks, so it keeps working even if every
// configured sink is dead.
package diag

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.Logger
)

func instance() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return logger
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), zapcore.InfoLevel)
	logger = zap.New(core)
	return logger
}

// Error reports a record-level or sink-level failure that must never reach
// the caller of Log. component identifies the subsystem (e.g. "sink.file",
// "redact", "engine").
func Error(component string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	all := append([]zap.Field{zap.String("component", component), zap.Error(err)}, fields...)
	instance().Error("dlog: internal error", all...)
}

// Warn reports a non-fatal internal condition (e.g. a dropped entry under
// backpressure) for operator visibility without treating it as an error.
func Warn(component string, msg string, fields ...zap.Field) {
	all := append([]zap.Field{zap.String("component", component)}, fields...)
	instance().Warn(msg, all...)
}
