package config

import "time"

const (
	// DefaultServerPort is the default port for the status/webhook server.
	DefaultServerPort = 8090

	// DefaultServerHost is the default bind address for the server.
	DefaultServerHost = "localhost"

	// DefaultSyncInterval is the base interval between reconciliation passes.
	DefaultSyncInterval = 3 * time.Minute

	// DefaultWorkers is the number of applications reconciled concurrently.
	DefaultWorkers = 2

	// DefaultOperationTimeout bounds one apply/delete against the cluster.
	DefaultOperationTimeout = 30 * time.Second

	// DefaultMaxRetries is the per-resource retry limit for transient
	// failures within a pass.
	DefaultMaxRetries = 5

	// DefaultInitialBackoff is the first retry delay.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the exponential retry delay.
	DefaultMaxBackoff = time.Minute
)

// GetDefaultConfig returns the default steward configuration.
func GetDefaultConfig() StewardConfig {
	enabled := true
	return StewardConfig{
		Server: ServerConfig{
			Port:    DefaultServerPort,
			Host:    DefaultServerHost,
			Enabled: &enabled,
		},
		Controller: ControllerConfig{
			SyncInterval:     DefaultSyncInterval,
			Workers:          DefaultWorkers,
			OperationTimeout: DefaultOperationTimeout,
			MaxRetries:       DefaultMaxRetries,
			InitialBackoff:   DefaultInitialBackoff,
			MaxBackoff:       DefaultMaxBackoff,
		},
	}
}

// applyDefaults fills unset fields of a loaded configuration in place.
func applyDefaults(cfg *StewardConfig) {
	def := GetDefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Enabled == nil {
		cfg.Server.Enabled = def.Server.Enabled
	}
	if cfg.Controller.SyncInterval == 0 {
		cfg.Controller.SyncInterval = def.Controller.SyncInterval
	}
	if cfg.Controller.Workers == 0 {
		cfg.Controller.Workers = def.Controller.Workers
	}
	if cfg.Controller.OperationTimeout == 0 {
		cfg.Controller.OperationTimeout = def.Controller.OperationTimeout
	}
	if cfg.Controller.MaxRetries == 0 {
		cfg.Controller.MaxRetries = def.Controller.MaxRetries
	}
	if cfg.Controller.InitialBackoff == 0 {
		cfg.Controller.InitialBackoff = def.Controller.InitialBackoff
	}
	if cfg.Controller.MaxBackoff == 0 {
		cfg.Controller.MaxBackoff = def.Controller.MaxBackoff
	}
}
