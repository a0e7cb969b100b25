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
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// tailPollInterval bounds how often tail re-checks the source file for new
// lines once it has drained whatever was already written.
const tailPollInterval = 200 * time.Millisecond

func newTailCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tail <path>",
		Short: "Follow a file and log each new line through an Engine built from config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			e, err := buildEngine(ctx, flags)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), closeDeadline)
				defer closeCancel()
				_ = e.Close(closeCtx)
				return fmt.Errorf("dlogctl: tail: %w", err)
			}
			defer f.Close()

			reader := bufio.NewReader(f)
			ticker := time.NewTicker(tailPollInterval)
			defer ticker.Stop()

		followLoop:
			for {
				for {
					line, readErr := reader.ReadString('\n')
					if line != "" {
						logLine(e, trimNewline(line))
					}
					if readErr == io.EOF {
						break
					}
					if readErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "dlogctl: tail: %v\n", readErr)
						break followLoop
					}
				}
				select {
				case <-ctx.Done():
					break followLoop
				case <-ticker.C:
				}
			}

			closeCtx, closeCancel := context.WithTimeout(context.Background(), closeDeadline)
			defer closeCancel()
			return e.Close(closeCtx)
		},
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
