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

package config

import (
	"fmt"
	"os"
	"time"

	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/apis/record"
	"dirpx.dev/dlog/runtime/buffer"
	"dirpx.dev/dlog/runtime/encoder"
	aconsole "dirpx.dev/dlog/runtime/encoder/console"
	ajson "dirpx.dev/dlog/runtime/encoder/json"
	"dirpx.dev/dlog/runtime/encoder/wire"
	"dirpx.dev/dlog/runtime/engine"
)

// performanceBufferMultiplier scales performance.buffer_size by mode:
// "fast"/"ultra" trade memory for fewer producer stalls under burst load.
var performanceBufferMultiplier = map[PerformanceMode]int{
	ModeStandard: 1,
	ModeFast:     2,
	ModeUltra:    4,
}

func (c *Config) bufferCapacity() int {
	mul := performanceBufferMultiplier[c.Performance.Mode]
	if mul == 0 {
		mul = 1
	}
	return c.Performance.BufferSize * mul
}

// buildEncoder selects an encoder.Encoder for output.format: "json" is
// dlog's canonical wire format (the field order and truncation semantics
// spec §3/§8-S1 pin down), "compact" is zap's single-line JSON encoder,
// and "pretty" is zap's human-readable console encoder.
func (c *Config) buildEncoder() (encoder.Encoder, error) {
	switch c.Output.Format {
	case "", "json":
		return wire.New(wire.Options{}), nil
	case "compact":
		return ajson.New(encoder.Options{}), nil
	case "pretty":
		return aconsole.New(encoder.Options{Pretty: true}), nil
	default:
		return nil, fmt.Errorf("config: output.format: unrecognized value %q", c.Output.Format)
	}
}

// EngineOptions translates Config into engine.Options: the minimum level,
// buffer capacity, redactor, and encoder. It does not build or attach
// sinks; call BuildSinks and Engine.AddSink separately so a caller can
// decide how to react to a per-sink construction failure.
func (c *Config) EngineOptions() (engine.Options, error) {
	minLevel, err := level.ParseLevel(c.Output.Level)
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: output.level: %w", err)
	}

	enc, err := c.buildEncoder()
	if err != nil {
		return engine.Options{}, err
	}

	redactor, err := c.Redactor()
	if err != nil {
		return engine.Options{}, err
	}

	hostname, _ := os.Hostname()

	return engine.Options{
		Host: record.Host{
			Hostname: hostname,
			PID:      os.Getpid(),
		},
		MinLevel:         minLevel,
		Buffer:           buffer.Options{Capacity: c.bufferCapacity()},
		Redactor:         redactor,
		Encoder:          enc,
		DispatchIdleWait: time.Duration(c.Performance.FlushIntervalMS) * time.Millisecond,
	}, nil
}
