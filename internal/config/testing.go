// Package config - test helpers
//
// This file exports internal functions for use in tests.
// These functions should not be used in production code.
package config

// LoadFromFileForTesting exposes loadFromFile for unit tests in other packages.
//
// WARNING: This function is intended for testing only.
func (c *Config) LoadFromFileForTesting(configPath string) error {
	return c.loadFromFile(configPath)
}

// SetDefaultConfigPathForTesting points the implicit config file lookup at
// path and returns a function restoring the previous value.
//
// WARNING: This function is intended for testing only.
func SetDefaultConfigPathForTesting(path string) (restore func()) {
	prev := defaultConfigPath
	defaultConfigPath = path
	return func() { defaultConfigPath = prev }
}
