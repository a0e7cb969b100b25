package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "dirpx.dev/dlog/runtime/sink/console"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: "-"})
	require.NoError(t, err)
	require.Equal(t, ModeStandard, cfg.Performance.Mode)
	require.Equal(t, 4096, cfg.Performance.BufferSize)
	require.Equal(t, 100, cfg.Performance.FlushIntervalMS)
	require.Equal(t, "info", cfg.Output.Level)
	require.Equal(t, "json", cfg.Output.Format)
	require.True(t, cfg.Security.PIIMasking.Enabled)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PERFORMANCE_BUFFER_SIZE", "8192")
	t.Setenv("OUTPUT_FORMAT", "pretty")
	cfg, err := Load(LoadOptions{EnvFile: "-"})
	require.NoError(t, err)
	require.Equal(t, 8192, cfg.Performance.BufferSize)
	require.Equal(t, "pretty", cfg.Output.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"performance:\n  mode: ultra\n  buffer_size: 1024\noutput:\n  level: debug\n  format: compact\n",
	), 0o600))

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: "-"})
	require.NoError(t, err)
	require.Equal(t, ModeUltra, cfg.Performance.Mode)
	require.Equal(t, 1024, cfg.Performance.BufferSize)
	require.Equal(t, "debug", cfg.Output.Level)
	require.Equal(t, "compact", cfg.Output.Format)
}

func TestValidate_RejectsOutOfRangeBufferSize(t *testing.T) {
	cfg := &Config{
		Performance: Performance{Mode: ModeStandard, BufferSize: 100, FlushIntervalMS: 100},
		Output:      Output{Level: "info", Format: "json"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownFormat(t *testing.T) {
	cfg := &Config{
		Performance: Performance{Mode: ModeStandard, BufferSize: 4096, FlushIntervalMS: 100},
		Output:      Output{Level: "info", Format: "xml"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsRuleMissingSelector(t *testing.T) {
	cfg := &Config{
		Performance: Performance{Mode: ModeStandard, BufferSize: 4096, FlushIntervalMS: 100},
		Output:      Output{Level: "info", Format: "json"},
		Security: Security{PIIMasking: PIIMasking{
			Enabled: true,
			Rules:   []Rule{{Mask: "[X]"}},
		}},
	}
	require.Error(t, cfg.Validate())
}

func TestRedactor_NilWhenMaskingDisabled(t *testing.T) {
	cfg := &Config{Security: Security{PIIMasking: PIIMasking{Enabled: false}}}
	r, err := cfg.Redactor()
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestRedactor_AppendsConfigRules(t *testing.T) {
	cfg := &Config{Security: Security{PIIMasking: PIIMasking{
		Enabled: true,
		Rules:   []Rule{{Pattern: `\bsecret-\d+\b`, Mask: "[REDACTED_CUSTOM]"}},
	}}}
	r, err := cfg.Redactor()
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestEngineOptions_BuildsEncoderPerFormat(t *testing.T) {
	for _, format := range []string{"json", "compact", "pretty"} {
		cfg := &Config{
			Performance: Performance{Mode: ModeStandard, BufferSize: 4096, FlushIntervalMS: 100},
			Output:      Output{Level: "info", Format: format},
		}
		opt, err := cfg.EngineOptions()
		require.NoError(t, err, format)
		require.NotNil(t, opt.Encoder, format)
	}
}

func TestEngineOptions_BufferScalesWithMode(t *testing.T) {
	fast := &Config{Performance: Performance{Mode: ModeFast, BufferSize: 1000, FlushIntervalMS: 100}, Output: Output{Level: "info", Format: "json"}}
	opt, err := fast.EngineOptions()
	require.NoError(t, err)
	require.Equal(t, 2000, opt.Buffer.Capacity)
}

func TestBuildSinks_UnknownKindCollectedAsError(t *testing.T) {
	cfg := &Config{Sinks: []SinkConfig{{Name: "bogus", Kind: "does-not-exist"}}}
	_, err := cfg.BuildSinks(context.Background())
	require.Error(t, err)
}

func TestBuildSinks_DuplicateNameRejected(t *testing.T) {
	cfg := &Config{Sinks: []SinkConfig{
		{Name: "a", Kind: "console"},
		{Name: "a", Kind: "console"},
	}}
	_, err := cfg.BuildSinks(context.Background())
	require.Error(t, err)
}

func TestBuildSinks_BuildsRegisteredConsoleSink(t *testing.T) {
	cfg := &Config{Sinks: []SinkConfig{{Name: "stdout", Kind: "console"}}}
	sinks, err := cfg.BuildSinks(context.Background())
	require.NoError(t, err)
	require.Len(t, sinks, 1)
}

func TestCredentialEnvDefaults_FillsFromEnvWhenLabelAbsent(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("CLOUDWATCH_LOG_GROUP", "/dlog/test")
	labels := credentialEnvDefaults("cloudwatch", nil)
	require.Equal(t, "us-west-2", labels["region"])
	require.Equal(t, "/dlog/test", labels["log_group"])
}

func TestCredentialEnvDefaults_ExplicitLabelWins(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")
	labels := credentialEnvDefaults("cloudwatch", map[string]string{"region": "eu-central-1"})
	require.Equal(t, "eu-central-1", labels["region"])
}
