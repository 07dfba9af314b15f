package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

const (
	// maxConfigFileSize is the maximum allowed config file size (1MB).
	maxConfigFileSize = 1 << 20

	// worldWritableBits is the Unix permission bit for "other write" access.
	worldWritableBits = 0002
)

// defaultConfigPath is loaded when present and no --config flag is given.
var defaultConfigPath = "/etc/mount-status-monitor/config.json"

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler for Duration.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// FileConfig represents the JSON configuration file structure.
// Pointers distinguish "not set" from an explicit false.
type FileConfig struct {
	PollInterval    Duration `json:"pollInterval,omitempty"`
	OnceOnly        *bool    `json:"onceOnly,omitempty"`
	CheckCommand    []string `json:"checkCommand,omitempty"`
	CheckTimeout    Duration `json:"checkTimeout,omitempty"`
	Workers         int      `json:"workers,omitempty"`
	Mounts          []string `json:"mounts,omitempty"`
	FSTypes         []string `json:"fsTypes,omitempty"`
	PrintBadMounts  *bool    `json:"printBadMounts,omitempty"`
	PushGateway     string   `json:"prometheusPushGateway,omitempty"`
	Instance        string   `json:"instance,omitempty"`
	HTTPPort        int      `json:"httpPort,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty"`
	LogLevel        string   `json:"logLevel,omitempty"`
	LogFormat       string   `json:"logFormat,omitempty"`
	LogTarget       string   `json:"logTarget,omitempty"`
}

// loadFromFile loads configuration from a JSON file.
// If configPath is empty, the default path is used when it exists.
// If an explicit path is provided but doesn't exist, it returns an error.
func (c *Config) loadFromFile(configPath string) error {
	filePath := configPath
	explicitPath := configPath != ""
	if !explicitPath {
		filePath = defaultConfigPath
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		if explicitPath {
			return fmt.Errorf("config file not found: %s", filePath)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking config file: %w", err)
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds maximum size of %d bytes (got %d bytes)",
			filePath, maxConfigFileSize, info.Size())
	}

	// This runs before the configured logger exists, so it goes to the
	// default slog logger.
	if runtime.GOOS != "windows" {
		if info.Mode().Perm()&worldWritableBits != 0 {
			slog.Warn("config file is world-writable, which may be a security risk",
				"path", filePath,
				"mode", fmt.Sprintf("%04o", info.Mode().Perm()))
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", filePath, err)
	}

	var fileConfig FileConfig
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", filePath, err)
	}

	if err := validateFileConfig(&fileConfig); err != nil {
		return fmt.Errorf("config file %s: %w", filePath, err)
	}

	c.ConfigFile = filePath
	applyFileConfig(c, &fileConfig)

	return nil
}

// validateFileConfig rejects values that cannot mean "use the default".
func validateFileConfig(fc *FileConfig) error {
	for i, m := range fc.Mounts {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("mounts[%d]: path must not be empty", i)
		}
	}
	if fc.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", fc.Workers)
	}
	if fc.HTTPPort < 0 {
		return fmt.Errorf("httpPort must be >= 0, got %d", fc.HTTPPort)
	}
	if fc.CheckCommand != nil && len(fc.CheckCommand) == 0 {
		return fmt.Errorf("checkCommand must not be empty")
	}
	return nil
}

// applyFileConfig applies values from FileConfig to the runtime Config.
// Values from the file override defaults but will be overridden by env vars and flags.
func applyFileConfig(c *Config, fc *FileConfig) {
	if fc.PollInterval > 0 {
		c.PollInterval = time.Duration(fc.PollInterval)
	}
	if fc.OnceOnly != nil {
		c.OnceOnly = *fc.OnceOnly
	}
	if len(fc.CheckCommand) > 0 {
		c.CheckCommand = append([]string(nil), fc.CheckCommand...)
	}
	if fc.CheckTimeout > 0 {
		c.CheckTimeout = time.Duration(fc.CheckTimeout)
	}
	if fc.Workers > 0 {
		c.Workers = fc.Workers
	}
	if len(fc.Mounts) > 0 {
		c.Mounts = append([]string(nil), fc.Mounts...)
	}
	if len(fc.FSTypes) > 0 {
		c.FSTypes = append([]string(nil), fc.FSTypes...)
	}
	if fc.PrintBadMounts != nil {
		c.PrintBadMounts = *fc.PrintBadMounts
	}
	if fc.PushGateway != "" {
		c.PushGateway = fc.PushGateway
	}
	if fc.Instance != "" {
		c.Instance = fc.Instance
	}
	if fc.HTTPPort > 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.ShutdownTimeout > 0 {
		c.ShutdownTimeout = time.Duration(fc.ShutdownTimeout)
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.LogTarget != "" {
		c.LogTarget = fc.LogTarget
	}
}
