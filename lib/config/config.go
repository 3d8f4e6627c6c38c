// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the environment variable Load reads the
// configuration path from.
const EnvironmentVariable = "DEMUL_CONFIG"

// MaxBinaryChannels is the number of ids available to binary channels:
// every printable id after the interactive channel's '1'.
const MaxBinaryChannels = 0x7e - '2' + 1

// Compression selects how trace records are compressed.
type Compression string

const (
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
	CompressionNone Compression = "none"
)

// Config is the complete demul configuration.
type Config struct {
	// Shell is the program the server runs on the interactive channel.
	// Default: $SHELL, or /bin/sh when unset.
	Shell string `yaml:"shell" json:"shell"`

	// ReadChunkSize bounds a single read from any channel.
	// Default: 65536
	ReadChunkSize int `yaml:"read_chunk_size" json:"read_chunk_size"`

	// MaxPayloadHex bounds the hex digits of one inbound frame. It must
	// be at least twice the peer's read chunk size or the peer's largest
	// frames are dropped. A negative value removes the bound.
	// Default: 131072
	MaxPayloadHex int `yaml:"max_payload_hex" json:"max_payload_hex"`

	// BinaryChannels is the number of binary channels, with ids '2',
	// '3' and so on. Both ends must agree.
	// Default: 1
	BinaryChannels int `yaml:"binary_channels" json:"binary_channels"`

	// LogLevel is debug, info, warn or error. Empty selects the role
	// default: warn for the server, info for the client.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Server ServerConfig `yaml:"server" json:"server"`
	Client ClientConfig `yaml:"client" json:"client"`
	Trace  TraceConfig  `yaml:"trace" json:"trace"`
}

// ServerConfig configures the server role.
type ServerConfig struct {
	// NoPost clears output post-processing on the shell's terminal, so
	// the shell's newlines reach the peer untranslated.
	// Default: false
	NoPost bool `yaml:"no_post" json:"no_post"`

	// DisableEcho turns off echo on the controlling terminal, which is
	// the transport on the server side.
	// Default: true
	DisableEcho bool `yaml:"disable_echo" json:"disable_echo"`
}

// ClientConfig configures the client role.
type ClientConfig struct {
	// RawTransport puts the transport device in raw mode when it is a
	// terminal.
	// Default: true
	RawTransport bool `yaml:"raw_transport" json:"raw_transport"`

	// Baud sets the transport line speed when it is a terminal. Zero
	// leaves the speed unchanged.
	Baud int `yaml:"baud" json:"baud"`
}

// TraceConfig configures frame tracing.
type TraceConfig struct {
	// Path is the trace file. Empty disables tracing.
	Path string `yaml:"path" json:"path"`

	// Compression is zstd, lz4 or none.
	// Default: zstd
	Compression Compression `yaml:"compression" json:"compression"`
}

// Default returns the built-in configuration, used as the base that a
// file is merged into and on its own when no file is named.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Shell:          shell,
		ReadChunkSize:  64 * 1024,
		MaxPayloadHex:  2 * 64 * 1024,
		BinaryChannels: 1,
		Server: ServerConfig{
			DisableEcho: true,
		},
		Client: ClientConfig{
			RawTransport: true,
		},
		Trace: TraceConfig{
			Compression: CompressionZstd,
		},
	}
}

// Load loads the file named by DEMUL_CONFIG, or returns the defaults
// when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile merges the file at path over the defaults. Files ending in
// .json or .jsonc are read as JSON with comments and trailing commas;
// anything else is YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Shell = expandVars(c.Shell, vars)
	c.Trace.Path = expandVars(c.Trace.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Shell == "" {
		errs = append(errs, fmt.Errorf("shell is required"))
	}
	if c.ReadChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("read_chunk_size must be positive, got %d", c.ReadChunkSize))
	}
	if c.MaxPayloadHex >= 0 && c.MaxPayloadHex < 2*c.ReadChunkSize {
		errs = append(errs, fmt.Errorf("max_payload_hex (%d) must be at least twice read_chunk_size (%d)",
			c.MaxPayloadHex, c.ReadChunkSize))
	}
	if c.BinaryChannels < 1 || c.BinaryChannels > MaxBinaryChannels {
		errs = append(errs, fmt.Errorf("binary_channels must be between 1 and %d, got %d",
			MaxBinaryChannels, c.BinaryChannels))
	}
	if _, err := c.Level(slog.LevelInfo); err != nil {
		errs = append(errs, err)
	}
	if c.Client.Baud < 0 {
		errs = append(errs, fmt.Errorf("client.baud must not be negative, got %d", c.Client.Baud))
	}
	compressions := []Compression{CompressionZstd, CompressionLZ4, CompressionNone}
	if !slices.Contains(compressions, c.Trace.Compression) {
		errs = append(errs, fmt.Errorf("trace.compression must be one of: %v", compressions))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level returns the configured log level, or fallback when LogLevel is
// empty.
func (c *Config) Level(fallback slog.Level) (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "":
		return fallback, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return fallback, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
}
