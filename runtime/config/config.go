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
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PerformanceMode selects pool/buffer sizing presets. It does not change
// wire semantics, only how generously the ring buffer and dispatcher are
// sized.
type PerformanceMode string

const (
	ModeStandard PerformanceMode = "standard"
	ModeFast     PerformanceMode = "fast"
	ModeUltra    PerformanceMode = "ultra"
)

// Performance holds the performance.* option tree.
type Performance struct {
	Mode            PerformanceMode `mapstructure:"mode"`
	BufferSize      int             `mapstructure:"buffer_size"`
	FlushIntervalMS int             `mapstructure:"flush_interval_ms"`
}

// Output holds the output.* option tree.
type Output struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Rule is one security.pii_masking.rules entry. Field, if set, matches a
// record field key as a case-insensitive substring (mirrors
// redact.Options.FieldNameSubstrings). Pattern, if set, is compiled as a
// regexp and evaluated against string-valued leaves. Mask is the literal
// replacement text; unlike the built-in patterns it is not derived from
// the match, since config can't carry a function.
type Rule struct {
	Field   string `mapstructure:"field"`
	Pattern string `mapstructure:"pattern"`
	Mask    string `mapstructure:"mask"`
}

// PIIMasking holds the security.pii_masking.* option tree.
type PIIMasking struct {
	Enabled bool   `mapstructure:"enabled"`
	Rules   []Rule `mapstructure:"rules"`
}

// Security holds the security.* option tree.
type Security struct {
	PIIMasking PIIMasking `mapstructure:"pii_masking"`
}

// SinkConfig declares one sink to build and register with an Engine.
// Kind selects the registered builder ("console", "file", "elasticsearch",
// "cloudwatch", "stackdriver", "azuremonitor", ...); Labels are the
// sink-specific key/value options each builder's init() consumes (see
// each sink package's Register call for its recognized keys).
type SinkConfig struct {
	Name   string            `mapstructure:"name"`
	Kind   string            `mapstructure:"kind"`
	Labels map[string]string `mapstructure:"labels"`

	// MaxRetries bounds how many consecutive retriable failures a pending
	// batch survives on HTTP-batch-backed sinks (elasticsearch, cloudwatch,
	// stackdriver, azuremonitor) before it is dropped and the sink marked
	// dead. Zero defers to that sink's own default (3).
	MaxRetries int `mapstructure:"max_retries"`
}

// Config is dlog's fully-resolved external configuration, per spec §6.
type Config struct {
	Performance Performance  `mapstructure:"performance"`
	Output      Output       `mapstructure:"output"`
	Security    Security     `mapstructure:"security"`
	Sinks       []SinkConfig `mapstructure:"sinks"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("performance.mode", string(ModeStandard))
	v.SetDefault("performance.buffer_size", 4096)
	v.SetDefault("performance.flush_interval_ms", 100)
	v.SetDefault("output.level", "info")
	v.SetDefault("output.format", "json")
	v.SetDefault("security.pii_masking.enabled", true)
}

// LoadOptions controls how Load locates its inputs.
type LoadOptions struct {
	// ConfigFile, if non-empty, is passed to viper.SetConfigFile. When
	// empty, Load runs on defaults + environment only: a missing config
	// file is not an error, since every option above has a default.
	ConfigFile string

	// EnvFile, if non-empty, overrides the default ".env" path consulted
	// by godotenv before the environment is read. Set to "-" to skip
	// .env loading entirely.
	EnvFile string
}

// Load builds a Config from defaults, an optional config file, and the
// environment (env vars win over file values, which win over defaults).
func Load(opt LoadOptions) (*Config, error) {
	if opt.EnvFile != "-" {
		path := opt.EnvFile
		if path == "" {
			path = ".env"
		}
		// Absence of a .env file is normal outside local development;
		// any other error (permissions, malformed file) is surfaced.
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opt.ConfigFile != "" {
		v.SetConfigFile(opt.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opt.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the bounds spec §6 documents for the performance
// option tree and rejects unrecognized enum-like values.
func (c *Config) Validate() error {
	switch c.Performance.Mode {
	case ModeStandard, ModeFast, ModeUltra:
	default:
		return fmt.Errorf("config: performance.mode: unrecognized value %q", c.Performance.Mode)
	}
	if c.Performance.BufferSize < 256 || c.Performance.BufferSize > 65536 {
		return fmt.Errorf("config: performance.buffer_size: %d out of range [256,65536]", c.Performance.BufferSize)
	}
	if c.Performance.FlushIntervalMS < 10 || c.Performance.FlushIntervalMS > 10000 {
		return fmt.Errorf("config: performance.flush_interval_ms: %d out of range [10,10000]", c.Performance.FlushIntervalMS)
	}
	switch c.Output.Format {
	case "json", "compact", "pretty":
	default:
		return fmt.Errorf("config: output.format: unrecognized value %q", c.Output.Format)
	}
	for _, r := range c.Security.PIIMasking.Rules {
		if r.Field == "" && r.Pattern == "" {
			return fmt.Errorf("config: security.pii_masking.rules: entry must set field or pattern")
		}
		if r.Mask == "" {
			return fmt.Errorf("config: security.pii_masking.rules: entry missing mask")
		}
	}
	return nil
}
