package app

import "steward/internal/config"

// Config carries the command-line level options of a steward process.
type Config struct {
	// Debug enables debug-level logging.
	Debug bool

	// Silent suppresses all log output. Used by one-shot commands whose
	// stdout is the result itself.
	Silent bool

	// JSONLog switches log output to JSON, for running under a log shipper.
	JSONLog bool

	// ConfigPath is the configuration directory. Empty means the per-user
	// default (~/.config/steward).
	ConfigPath string

	// StewardConfig is populated during bootstrap.
	StewardConfig *config.StewardConfig

	// Applications is populated during bootstrap.
	Applications []config.Application
}

// NewConfig creates an application configuration from command-line flags.
func NewConfig(debug, silent, jsonLog bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		JSONLog:    jsonLog,
		ConfigPath: configPath,
	}
}

// EffectiveConfigPath resolves the configuration directory.
func (c *Config) EffectiveConfigPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return config.GetDefaultConfigPathOrPanic()
}
