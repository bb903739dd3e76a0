package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read at startup.
const (
	EnvEndpoint     = "GKE_CLUSTER_ENDPOINT"
	EnvCAData       = "GKE_CLUSTER_CA"
	EnvPath         = "KUBECONFIG_PATH"
	EnvMode         = "KUBECONFIG_MODE"
	EnvInterval     = "REFRESH_INTERVAL"
	EnvTokenCommand = "TOKEN_COMMAND"
	EnvTokenTimeout = "TOKEN_TIMEOUT"
	EnvFormat       = "KUBECONFIG_FORMAT"
	EnvValidate     = "KUBECONFIG_VALIDATE"
	EnvWatch        = "KUBECONFIG_WATCH"
	EnvMetricsAddr  = "METRICS_ADDR"
	EnvLogLevel     = "LOG_LEVEL"
)

// Default values applied when neither the config file nor the environment
// sets a field.
const (
	DefaultPath         = "/kube/config"
	DefaultMode         = "0640"
	DefaultInterval     = 300 * time.Second
	DefaultTokenCommand = "gcloud auth print-access-token"
	DefaultTokenTimeout = 30 * time.Second
	DefaultFormat       = FormatJSON
	DefaultLogLevel     = "info"
)

// minDuration is the smallest interval or timeout accepted. Bare YAML
// integers decode as nanoseconds, so anything below it is a unit mistake.
const minDuration = time.Second

// Output encodings for the kubeconfig file.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the immutable runtime configuration. It is built once by Load
// and passed by value into the refresh loop.
type Config struct {
	// Endpoint is the cluster API server URL, written verbatim.
	Endpoint string `koanf:"endpoint"`

	// CAData is the base64 certificate authority bundle, written verbatim.
	CAData string `koanf:"ca_data"`

	// KubeconfigPath is where the generated kubeconfig is written.
	KubeconfigPath string `koanf:"kubeconfig_path"`

	// KubeconfigMode is the octal permission of the written file, e.g. "0640".
	// Quote it in YAML so it is not read as a decimal or octal integer.
	KubeconfigMode string `koanf:"kubeconfig_mode"`

	// Interval is the wait between two refresh cycles.
	Interval time.Duration `koanf:"interval"`

	// TokenCommand is the identity CLI invocation, split on whitespace.
	TokenCommand string `koanf:"token_command"`

	// TokenTimeout bounds a single TokenCommand run.
	TokenTimeout time.Duration `koanf:"token_timeout"`

	// Format is the output encoding: json | yaml.
	Format string `koanf:"format"`

	// Validate loads the rendered kubeconfig with client-go before writing it.
	Validate bool `koanf:"validate"`

	// WatchOutput rewrites the kubeconfig as soon as it disappears from disk.
	WatchOutput bool `koanf:"watch_output"`

	// MetricsAddr is the listen address for /metrics and /healthz.
	// Empty disables the HTTP endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `koanf:"log_level"`
}

// TokenArgs returns TokenCommand as an argv slice.
func (c Config) TokenArgs() []string {
	return strings.Fields(c.TokenCommand)
}

// FileMode returns KubeconfigMode parsed as octal permission bits.
func (c Config) FileMode() (os.FileMode, error) {
	v, err := strconv.ParseUint(c.KubeconfigMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("kubeconfig_mode %q: not an octal mode", c.KubeconfigMode)
	}
	if v&^0o777 != 0 {
		return 0, fmt.Errorf("kubeconfig_mode %q: only permission bits are allowed", c.KubeconfigMode)
	}
	return os.FileMode(v), nil
}

// ConfigurationError reports startup input that prevents the refresh loop
// from starting.
type ConfigurationError struct {
	// Missing lists required environment variables that were unset or empty.
	Missing []string
	// Reason describes any other invalid setting.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required environment: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string]string{
	EnvEndpoint:     "endpoint",
	EnvCAData:       "ca_data",
	EnvPath:         "kubeconfig_path",
	EnvMode:         "kubeconfig_mode",
	EnvInterval:     "interval",
	EnvTokenCommand: "token_command",
	EnvTokenTimeout: "token_timeout",
	EnvFormat:       "format",
	EnvValidate:     "validate",
	EnvWatch:        "watch_output",
	EnvMetricsAddr:  "metrics_addr",
	EnvLogLevel:     "log_level",
}

// Load builds the Config from defaults, the optional YAML file at path and
// the environment, in increasing priority. An empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	overrides := make(map[string]any)
	for env, key := range envKeys {
		if v := os.Getenv(env); v != "" {
			overrides[key] = v
		}
	}
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("config: load environment: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, &ConfigurationError{Reason: fmt.Sprintf("config: decode: %v", err)}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// defaults returns the default key set.
func defaults() map[string]any {
	return map[string]any{
		"kubeconfig_path": DefaultPath,
		"kubeconfig_mode": DefaultMode,
		"interval":        DefaultInterval.String(),
		"token_command":   DefaultTokenCommand,
		"token_timeout":   DefaultTokenTimeout.String(),
		"format":          DefaultFormat,
		"validate":        false,
		"watch_output":    true,
		"metrics_addr":    "",
		"log_level":       DefaultLogLevel,
	}
}

// validate checks required fields and value ranges.
func validate(cfg Config) error {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, EnvEndpoint)
	}
	if cfg.CAData == "" {
		missing = append(missing, EnvCAData)
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	switch {
	case cfg.KubeconfigPath == "":
		return &ConfigurationError{Reason: "kubeconfig_path must not be empty"}
	case cfg.Interval < minDuration:
		return &ConfigurationError{Reason: fmt.Sprintf("interval %s is below %s; use a unit such as 300s", cfg.Interval, minDuration)}
	case cfg.TokenTimeout < minDuration:
		return &ConfigurationError{Reason: fmt.Sprintf("token_timeout %s is below %s; use a unit such as 30s", cfg.TokenTimeout, minDuration)}
	case len(cfg.TokenArgs()) == 0:
		return &ConfigurationError{Reason: "token_command must not be empty"}
	}

	if _, err := cfg.FileMode(); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}

	switch cfg.Format {
	case FormatJSON, FormatYAML:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown format %q", cfg.Format)}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown log level %q", cfg.LogLevel)}
	}
	return nil
}
