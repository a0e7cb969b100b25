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
	"fmt"

	"github.com/spf13/cobra"

	"dirpx.dev/dlog/runtime/config"
	"dirpx.dev/dlog/runtime/engine"
	_ "dirpx.dev/dlog/runtime/sink/all"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "dlogctl",
		Short:         "Run and inspect a dlog logging pipeline from a config file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to a dlog config file (yaml/json/toml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", `path to a .env file ("-" to skip)`)

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newTailCmd(flags))
	root.AddCommand(newHealthCmd(flags))
	return root
}

// buildEngine loads configuration, constructs every declared sink, and
// returns a running *engine.Engine with them attached. Sinks that failed
// to build are reported but do not prevent startup: per spec §7, a
// misconfigured sink should not take the whole pipeline down.
func buildEngine(ctx context.Context, flags *rootFlags) (*engine.Engine, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		return nil, fmt.Errorf("dlogctl: %w", err)
	}

	opt, err := cfg.EngineOptions()
	if err != nil {
		return nil, fmt.Errorf("dlogctl: %w", err)
	}
	e := engine.New(opt)

	sinks, err := cfg.BuildSinks(ctx)
	if err != nil {
		fmt.Printf("dlogctl: warning: %v\n", err)
	}
	for _, s := range sinks {
		if err := e.AddSink(s); err != nil {
			fmt.Printf("dlogctl: warning: add sink %s: %v\n", s.Name(), err)
		}
	}
	return e, nil
}
