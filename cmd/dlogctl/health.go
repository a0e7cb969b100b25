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
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Build an Engine from config and print each sink's health as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), closeDeadline)
			defer cancel()

			e, err := buildEngine(ctx, flags)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			report := e.Health(ctx)
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("dlogctl: health: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			for _, r := range report.Results {
				if !r.OK() {
					return fmt.Errorf("dlogctl: sink %q unhealthy", r.Name)
				}
			}
			return nil
		},
	}
}
