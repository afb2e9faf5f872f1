package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CodecType represents the wire encoding between CLI and daemon
type CodecType string

const (
	CodecJSON    CodecType = "json"
	CodecMsgpack CodecType = "msgpack"
)

const (
	// DirName is the directory holding config and daemon state files
	DirName = ".calc"
	// FileName is the config file name inside DirName
	FileName = "config.yaml"
)

// Duration wraps time.Duration so it reads and writes as "5s" in YAML
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or an integer number of seconds
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds all configuration for calc and calcd
type Config struct {
	// Socket path for IPC communication
	SocketPath string `yaml:"socket_path" env:"CALC_SOCKET_PATH"`

	// TCP port used instead of the socket on Windows
	TCPPort string `yaml:"tcp_port" env:"CALC_TCP_PORT"`

	// Codec used on the daemon connection
	Codec CodecType `yaml:"codec" env:"CALC_CODEC"`

	// Timeout for a single daemon round trip
	Timeout Duration `yaml:"timeout" env:"CALC_TIMEOUT"`

	// Logging
	LogLevel string `yaml:"log_level" env:"CALC_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"CALC_LOG_JSON"`
	Verbose  bool   `yaml:"verbose" env:"CALC_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SocketPath: "/tmp/calc.sock",
		TCPPort:    "9848",
		Codec:      CodecJSON,
		Timeout:    Duration(5 * time.Second),
		LogLevel:   "info",
		LogJSON:    false,
		Verbose:    false,
	}
}

// GlobalConfigPath returns the global config file path (~/.calc/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, FileName)
	}
	return filepath.Join(home, DirName, FileName)
}

// ProjectConfigPath returns the project-level config file path (./.calc/config.yaml)
func ProjectConfigPath() string {
	return filepath.Join(DirName, FileName)
}

// EffectivePath returns the config file Load would read last, or "" if none exists
func EffectivePath() string {
	if _, err := os.Stat(ProjectConfigPath()); err == nil {
		return ProjectConfigPath()
	}
	if _, err := os.Stat(GlobalConfigPath()); err == nil {
		return GlobalConfigPath()
	}
	return ""
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.calc/config.yaml)
// 3. Global config (~/.calc/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CALC_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("CALC_TCP_PORT"); v != "" {
		cfg.TCPPort = v
	}
	if v := os.Getenv("CALC_CODEC"); v != "" {
		cfg.Codec = CodecType(strings.ToLower(v))
	}
	if v := os.Getenv("CALC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("CALC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALC_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := os.Getenv("CALC_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
}

func parseBool(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}

	port, err := strconv.Atoi(c.TCPPort)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid tcp_port: %s (must be 1-65535)", c.TCPPort)
	}

	switch c.Codec {
	case CodecJSON, CodecMsgpack:
		// Valid
	default:
		return fmt.Errorf("invalid codec: %s (must be 'json' or 'msgpack')", c.Codec)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn or error)", c.LogLevel)
	}

	return nil
}

// RoundTripTimeout returns Timeout as a time.Duration
func (c *Config) RoundTripTimeout() time.Duration {
	return time.Duration(c.Timeout)
}

// EffectiveLogLevel returns the configured level, forced to debug when Verbose is set
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}
