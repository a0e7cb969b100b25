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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dirpx.dev/dlog/apis/field"
	"dirpx.dev/dlog/apis/level"
	"dirpx.dev/dlog/runtime/engine"
)

// closeDeadline bounds how long run/tail wait for Engine.Close to drain
// pending records and flush sinks before giving up.
const closeDeadline = 5 * time.Second

// stdinRecord is the optional shape a run line may take; any line that
// isn't valid JSON, or is JSON without a "msg" key, is logged verbatim at
// info level instead.
type stdinRecord struct {
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields"`
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build an Engine from config and log each stdin line through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			e, err := buildEngine(ctx, flags)
			if err != nil {
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanLoop:
			for scanner.Scan() {
				select {
				case <-ctx.Done():
					break scanLoop
				default:
				}
				logLine(e, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "dlogctl: read stdin: %v\n", err)
			}

			closeCtx, closeCancel := context.WithTimeout(context.Background(), closeDeadline)
			defer closeCancel()
			return e.Close(closeCtx)
		},
	}
}

func logLine(e *engine.Engine, line string) {
	if line == "" {
		return
	}
	var rec stdinRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Msg == "" {
		e.Log(context.Background(), level.Info, line)
		return
	}
	lvl, err := level.ParseLevel(rec.Level)
	if err != nil {
		lvl = level.Info
	}
	fields := make([]field.Field, 0, len(rec.Fields))
	for k, v := range rec.Fields {
		fields = append(fields, field.New(k, v))
	}
	e.Log(context.Background(), lvl, rec.Msg, fields...)
}
