package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// EnvPrefix prefixes every logging environment variable.
const EnvPrefix = "YTMP3_LOG_"

// LogConfig is the user-facing logging configuration, as found in the config
// file and environment.
type LogConfig struct {
	Level      string          `json:"level" yaml:"level"`
	Format     string          `json:"format" yaml:"format"`
	Output     string          `json:"output" yaml:"output"`
	Components map[string]bool `json:"components" yaml:"components"`
	ShowCaller bool            `json:"show_caller" yaml:"show_caller"`
	Timestamp  bool            `json:"timestamp" yaml:"timestamp"`
	Rotation   *RotationConfig `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// RotationConfig represents log rotation configuration
type RotationConfig struct {
	MaxSize    string `json:"max_size" yaml:"max_size"`       // e.g., "100MB", "1GiB"
	MaxAge     string `json:"max_age" yaml:"max_age"`         // e.g., "7d", "24h"
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // number of backup files
	Compress   bool   `json:"compress" yaml:"compress"`       // gzip old logs
}

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:  "INFO",
		Format: "text",
		Output: "stderr",
		Components: map[string]bool{
			string(ComponentApp):        true,
			string(ComponentJob):        true,
			string(ComponentBackend):    false,
			string(ComponentTranscoder): false,
			string(ComponentClient):     false,
			string(ComponentScript):     false,
		},
		Rotation: &RotationConfig{
			MaxSize:    "100MB",
			MaxAge:     "7d",
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// ToLoggerConfig converts LogConfig to logger.Config. The Output writer is
// resolved without rotation.
func (c *LogConfig) ToLoggerConfig() (*Config, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}

	format, err := parseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("parse format: %w", err)
	}

	output, err := parseOutput(c.Output)
	if err != nil {
		return nil, fmt.Errorf("parse output: %w", err)
	}

	components := make(map[Component]bool)
	for name, enabled := range c.Components {
		components[Component(name)] = enabled
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		Components: components,
		ShowCaller: c.ShowCaller,
		Timestamp:  c.Timestamp,
	}, nil
}

// EnableAll turns on every known component.
func (c *LogConfig) EnableAll() {
	if c.Components == nil {
		c.Components = make(map[string]bool)
	}
	for _, comp := range AllComponents {
		c.Components[string(comp)] = true
	}
}

// ParseLevel parses a level name. WARNING is accepted as WARN.
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown level: %s", levelStr)
	}
}

// parseFormat parses format string to Format enum
func parseFormat(formatStr string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(formatStr)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "color", "colored":
		return FormatColor, nil
	default:
		return FormatText, fmt.Errorf("unknown format: %s", formatStr)
	}
}

// parseOutput parses output string to io.Writer. Files are given as
// "file:<path>".
func parseOutput(outputStr string) (io.Writer, error) {
	switch strings.ToLower(outputStr) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	case "null", "none":
		return io.Discard, nil
	}
	path, ok := filePath(outputStr)
	if !ok {
		return nil, fmt.Errorf("unknown output: %s", outputStr)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func filePath(output string) (string, bool) {
	if !strings.HasPrefix(output, "file:") {
		return "", false
	}
	path := strings.TrimPrefix(output, "file:")
	return path, path != ""
}

// ApplyEnvironment overrides c with YTMP3_LOG_* variables obtained from lookup.
func (c *LogConfig) ApplyEnvironment(lookup func(string) (string, bool)) {
	get := func(name string) string {
		v, _ := lookup(EnvPrefix + name)
		return strings.TrimSpace(v)
	}
	if level := get("LEVEL"); level != "" {
		c.Level = level
	}
	if format := get("FORMAT"); format != "" {
		c.Format = format
	}
	if output := get("OUTPUT"); output != "" {
		c.Output = output
	}
	if caller := get("CALLER"); caller != "" {
		c.ShowCaller = caller == "true" || caller == "1"
	}
	if timestamp := get("TIMESTAMP"); timestamp != "" {
		c.Timestamp = timestamp == "true" || timestamp == "1"
	}
	if components := get("COMPONENTS"); components != "" {
		c.Components = make(map[string]bool)
		for _, comp := range strings.Split(components, ",") {
			comp = strings.TrimSpace(comp)
			if comp != "" {
				c.Components[comp] = true
			}
		}
	}
}

// EnvironmentConfig returns the default configuration overridden by the
// process environment.
func EnvironmentConfig() *LogConfig {
	config := DefaultLogConfig()
	config.ApplyEnvironment(os.LookupEnv)
	return config
}

// ValidateConfig validates the configuration without opening any output.
func (c *LogConfig) ValidateConfig() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if _, err := parseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	switch strings.ToLower(c.Output) {
	case "stdout", "stderr", "", "null", "none":
	default:
		if _, ok := filePath(c.Output); !ok {
			return fmt.Errorf("invalid output: %s", c.Output)
		}
	}
	if c.Rotation != nil {
		if err := c.Rotation.Validate(); err != nil {
			return fmt.Errorf("invalid rotation config: %w", err)
		}
	}
	return nil
}

// Validate validates rotation configuration
func (r *RotationConfig) Validate() error {
	if r.MaxSize != "" {
		if _, err := parseSize(r.MaxSize); err != nil {
			return fmt.Errorf("invalid max_size: %w", err)
		}
	}
	if r.MaxAge != "" {
		if _, err := parseDuration(r.MaxAge); err != nil {
			return fmt.Errorf("invalid max_age: %w", err)
		}
	}
	if r.MaxBackups < 0 {
		return fmt.Errorf("max_backups must be non-negative")
	}
	return nil
}

// parseSize parses sizes such as "100MB" or "1GiB" to bytes.
func parseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(sizeStr)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// parseDuration accepts Go durations plus a day suffix ("7d").
func parseDuration(durationStr string) (time.Duration, error) {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(durationStr, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count: %s", durationStr)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration: %s", durationStr)
	}
	return d, nil
}
