// Package config handles configuration parsing from a JSON file, environment variables and flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
)

// Config holds all runtime configuration for the mount status monitor.
type Config struct {
	// Config file tracking
	ConfigFile string // Path to loaded config file ("" if none)

	// Poll loop
	PollInterval time.Duration // Time between ticks
	OnceOnly     bool          // Run a single tick and exit

	// Checks
	CheckCommand []string      // Command run with the mount path appended
	CheckTimeout time.Duration // Deadline for one check process
	Workers      int           // Mounts checked concurrently

	// Mount selection
	Mounts  []string // Fixed mount list; empty means the host mount table
	FSTypes []string // Filesystem types to include; empty means all

	// Reporting
	PrintBadMounts bool   // Print failing paths to stdout
	PushGateway    string // Prometheus push gateway address ("" disables)
	Instance       string // Host identity label for metrics

	// Server configuration
	HTTPPort        int           // Status server port (0 disables)
	ShutdownTimeout time.Duration // Max time for graceful shutdown

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
	LogTarget string // syslog, console

	ShowVersion bool // Print version and exit
}

// DefaultCheckCommand is run against each mountpoint unless configured otherwise.
var DefaultCheckCommand = []string{"/usr/bin/stat"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:    60 * time.Second,
		CheckCommand:    append([]string(nil), DefaultCheckCommand...),
		CheckTimeout:    3 * time.Second,
		Workers:         8,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		LogTarget:       "syslog",
	}
}

// Load parses configuration from the config file, environment variables and
// the command-line arguments (without the program name).
// Precedence: Defaults → Config File → Environment Variables → CLI Flags
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("mount-status-monitor", pflag.ContinueOnError)
	fs.SortFlags = false

	configFile := fs.StringP("config", "c", "", "Path to JSON configuration file")
	pollInterval := fs.Int("poll-interval", 60, "Seconds between mount checks")
	onceOnly := fs.BoolP("once-only", "1", false, "Check mounts once and exit")
	printBadMounts := fs.Bool("print-bad-mounts", false, "Print failing mountpoints to standard output")
	pushGateway := fs.String("prometheus-push-gateway", "", "Prometheus push gateway address (host:port)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	checkCommand := fs.String("check-command", strings.Join(DefaultCheckCommand, " "), "Command run with the mountpoint appended")
	checkTimeout := fs.Duration("check-timeout", 3*time.Second, "Deadline for a single check")
	workers := fs.Int("workers", 8, "Number of mountpoints checked concurrently")
	mountPaths := fs.StringSlice("mount", nil, "Mountpoint to monitor (repeatable); default is every mounted filesystem")
	fsTypes := fs.StringSlice("fs-type", nil, "Filesystem type to monitor (repeatable); default is all types")
	instance := fs.String("instance", "", "Instance label for pushed metrics (default hostname)")
	httpPort := fs.Int("http-port", 0, "Port for the status server (0 disables)")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Max time for graceful shutdown")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, critical")
	logFormat := fs.String("log-format", "text", "Log format: text, json")
	logTarget := fs.String("log-target", "syslog", "Log target: syslog, console")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load from config file (after defaults, before env vars)
	if err := cfg.loadFromFile(*configFile); err != nil {
		return nil, err
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	// Override with flags that were set explicitly
	if fs.Changed("poll-interval") {
		cfg.PollInterval = time.Duration(*pollInterval) * time.Second
	}
	if fs.Changed("once-only") {
		cfg.OnceOnly = *onceOnly
	}
	if fs.Changed("print-bad-mounts") {
		cfg.PrintBadMounts = *printBadMounts
	}
	if fs.Changed("prometheus-push-gateway") {
		cfg.PushGateway = *pushGateway
	}
	if fs.Changed("check-command") {
		cfg.CheckCommand = strings.Fields(*checkCommand)
	}
	if fs.Changed("check-timeout") {
		cfg.CheckTimeout = *checkTimeout
	}
	if fs.Changed("workers") {
		cfg.Workers = *workers
	}
	if fs.Changed("mount") {
		cfg.Mounts = parseList(strings.Join(*mountPaths, ","))
	}
	if fs.Changed("fs-type") {
		cfg.FSTypes = parseList(strings.Join(*fsTypes, ","))
	}
	if fs.Changed("instance") {
		cfg.Instance = *instance
	}
	if fs.Changed("http-port") {
		cfg.HTTPPort = *httpPort
	}
	if fs.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout = *shutdownTimeout
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = *logFormat
	}
	if fs.Changed("log-target") {
		cfg.LogTarget = *logTarget
	}
	cfg.ShowVersion = *showVersion

	if cfg.ShowVersion {
		return cfg, nil
	}

	if cfg.Instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("determining hostname: %w", err)
		}
		cfg.Instance = host
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromEnv applies environment variables. Malformed values are errors.
func (c *Config) loadFromEnv() error {
	var result *multierror.Error

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PollInterval = time.Duration(n) * time.Second
		} else {
			result = multierror.Append(result, fmt.Errorf("POLL_INTERVAL: %w", err))
		}
	}
	if v := os.Getenv("ONCE_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OnceOnly = b
		} else {
			result = multierror.Append(result, fmt.Errorf("ONCE_ONLY: %w", err))
		}
	}
	if v := os.Getenv("PRINT_BAD_MOUNTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.PrintBadMounts = b
		} else {
			result = multierror.Append(result, fmt.Errorf("PRINT_BAD_MOUNTS: %w", err))
		}
	}
	if v := os.Getenv("PROMETHEUS_PUSH_GATEWAY"); v != "" {
		c.PushGateway = v
	}
	if v := os.Getenv("CHECK_COMMAND"); v != "" {
		c.CheckCommand = strings.Fields(v)
	}
	if v := os.Getenv("CHECK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CheckTimeout = d
		} else {
			result = multierror.Append(result, fmt.Errorf("CHECK_TIMEOUT: %w", err))
		}
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		} else {
			result = multierror.Append(result, fmt.Errorf("WORKERS: %w", err))
		}
	}
	if v := os.Getenv("MOUNT_PATHS"); v != "" {
		c.Mounts = parseList(v)
	}
	if v := os.Getenv("FS_TYPES"); v != "" {
		c.FSTypes = parseList(v)
	}
	if v := os.Getenv("INSTANCE"); v != "" {
		c.Instance = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = n
		} else {
			result = multierror.Append(result, fmt.Errorf("HTTP_PORT: %w", err))
		}
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		} else {
			result = multierror.Append(result, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("LOG_TARGET"); v != "" {
		c.LogTarget = v
	}

	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = listFormat
		return fmt.Errorf("invalid environment: %w", result)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.PollInterval < time.Second {
		fail("poll interval must be >= 1 second")
	}

	if c.CheckTimeout < 100*time.Millisecond {
		fail("check timeout must be >= 100 milliseconds")
	}

	if c.CheckTimeout >= c.PollInterval {
		fail("check timeout must be less than poll interval")
	}

	if len(c.CheckCommand) == 0 {
		fail("check command is required")
	}

	if c.Workers < 1 {
		fail("workers must be >= 1")
	}

	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		fail("HTTP port must be between 0 and 65535")
	}

	if c.ShutdownTimeout <= 0 {
		fail("shutdown timeout must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "critical": true}
	if !validLogLevels[c.LogLevel] {
		fail("log level must be one of: debug, info, warn, error, critical (got %q)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.LogFormat] {
		fail("log format must be one of: json, text (got %q)", c.LogFormat)
	}

	validLogTargets := map[string]bool{"syslog": true, "console": true}
	if !validLogTargets[c.LogTarget] {
		fail("log target must be one of: syslog, console (got %q)", c.LogTarget)
	}

	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = listFormat
		return fmt.Errorf("configuration validation failed: %w", result)
	}
	return nil
}

// listFormat renders aggregated errors on one line, separated by "; ".
func listFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// parseList splits a comma-separated string into its non-empty, trimmed parts.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
