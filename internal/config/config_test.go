package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for env := range envKeys {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEndpoint, "https://cluster.example.com")
	t.Setenv(EnvCAData, "CA_DATA")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://cluster.example.com", cfg.Endpoint)
	assert.Equal(t, "CA_DATA", cfg.CAData)
	assert.Equal(t, DefaultPath, cfg.KubeconfigPath)
	mode, err := cfg.FileMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), mode)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, 300*time.Second, cfg.Interval)
	assert.Equal(t, DefaultTokenTimeout, cfg.TokenTimeout)
	assert.Equal(t, []string{"gcloud", "auth", "print-access-token"}, cfg.TokenArgs())
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.False(t, cfg.Validate)
	assert.True(t, cfg.WatchOutput)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEndpoint, "https://cluster.example.com")
	t.Setenv(EnvCAData, "CA_DATA")
	t.Setenv(EnvPath, "/custom/path/kube.config")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/custom/path/kube.config", cfg.KubeconfigPath)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		ca       string
		missing  []string
	}{
		{"endpoint only missing", "", "test_ca_data", []string{EnvEndpoint}},
		{"ca only missing", "test_endpoint_data", "", []string{EnvCAData}},
		{"both missing", "", "", []string{EnvEndpoint, EnvCAData}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvEndpoint, tc.endpoint)
			t.Setenv(EnvCAData, tc.ca)

			_, err := Load("")
			require.Error(t, err)

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "want *ConfigurationError, got %T", err)
			assert.Equal(t, tc.missing, cerr.Missing)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEndpoint, "https://cluster.example.com")
	t.Setenv(EnvCAData, "CA_DATA")
	t.Setenv(EnvInterval, "45s")
	t.Setenv(EnvTokenCommand, "printf token")
	t.Setenv(EnvTokenTimeout, "5s")
	t.Setenv(EnvFormat, "yaml")
	t.Setenv(EnvValidate, "true")
	t.Setenv(EnvWatch, "false")
	t.Setenv(EnvMetricsAddr, ":9090")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Interval)
	assert.Equal(t, []string{"printf", "token"}, cfg.TokenArgs())
	assert.Equal(t, 5*time.Second, cfg.TokenTimeout)
	assert.Equal(t, FormatYAML, cfg.Format)
	assert.True(t, cfg.Validate)
	assert.False(t, cfg.WatchOutput)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
endpoint: "https://from-file.example.com"
ca_data: "FILE_CA"
kubeconfig_path: "/from/file"
interval: 1m
format: yaml
`)
	t.Setenv(EnvEndpoint, "https://from-env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.Endpoint, "env wins over file")
	assert.Equal(t, "FILE_CA", cfg.CAData)
	assert.Equal(t, "/from/file", cfg.KubeconfigPath)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, FormatYAML, cfg.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"unknown format", EnvFormat, "toml"},
		{"zero interval", EnvInterval, "0s"},
		{"negative timeout", EnvTokenTimeout, "-1s"},
		{"blank command", EnvTokenCommand, "   "},
		{"unknown log level", EnvLogLevel, "loud"},
		{"sub-second interval", EnvInterval, "500ms"},
		{"sub-second timeout", EnvTokenTimeout, "30ns"},
		{"mode not octal", EnvMode, "rw-r-----"},
		{"mode with setuid", EnvMode, "4755"},
		{"bad duration", EnvInterval, "soon"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvEndpoint, "https://cluster.example.com")
			t.Setenv(EnvCAData, "CA_DATA")
			t.Setenv(tc.env, tc.val)

			_, err := Load("")
			require.Error(t, err)
			var cerr *ConfigurationError
			assert.True(t, errors.As(err, &cerr), "want *ConfigurationError, got %T: %v", err, err)
		})
	}
}

func TestLoad_FileBareIntegerDurations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"interval", "interval: 300\n"},
		{"token_timeout", "token_timeout: 30\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvEndpoint, "https://cluster.example.com")
			t.Setenv(EnvCAData, "CA_DATA")

			_, err := Load(writeFile(t, tc.content))
			require.Error(t, err)
			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "want *ConfigurationError, got %T: %v", err, err)
			assert.Contains(t, cerr.Reason, tc.name)
		})
	}
}

func TestLoad_Mode(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEndpoint, "https://cluster.example.com")
	t.Setenv(EnvCAData, "CA_DATA")
	t.Setenv(EnvMode, "0600")

	cfg, err := Load("")
	require.NoError(t, err)
	mode, err := cfg.FileMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), mode)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sidecar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
