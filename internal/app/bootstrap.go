package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"steward/internal/cluster"
	"steward/internal/config"
	"steward/internal/controller"
	"steward/internal/server"
	"steward/internal/source"
	"steward/internal/syncer"
	"steward/pkg/logging"
)

// Application bootstraps and runs a steward server process. It follows a
// two-phase pattern: NewApplication loads configuration and wires the
// components, Run starts them and blocks until shutdown.
type Application struct {
	config *Config

	manager *controller.Manager
	server  *server.Server
}

// NewApplication creates and initializes an application instance: logging,
// configuration, cluster connection, the pass engine, the controller, and
// the HTTP server.
func NewApplication(cfg *Config) (*Application, error) {
	initLogging(cfg)

	configPath := cfg.EffectiveConfigPath()

	stewardCfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("loading configuration from %s: %w", configPath, err)
	}
	cfg.StewardConfig = &stewardCfg

	apps, loadErrs := config.LoadApplications(configPath)
	for _, loadErr := range loadErrs {
		logging.Warn("Bootstrap", "Skipping application definition: %v", loadErr)
	}
	if len(apps) == 0 {
		logging.Warn("Bootstrap", "No application definitions found under %s", filepath.Join(configPath, "apps"))
	}
	cfg.Applications = apps

	clusterClient, err := cluster.NewClient(stewardCfg.Kubernetes)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to connect to the cluster")
		return nil, fmt.Errorf("connecting to the cluster: %w", err)
	}

	executor := syncer.NewExecutor(clusterClient, syncer.Options{
		MaxRetries:       stewardCfg.Controller.MaxRetries,
		InitialBackoff:   stewardCfg.Controller.InitialBackoff,
		MaxBackoff:       stewardCfg.Controller.MaxBackoff,
		OperationTimeout: stewardCfg.Controller.OperationTimeout,
	})
	engine := controller.NewEngine(clusterClient, executor)

	// The drift watcher is only worth its informers when some application
	// wants drift corrected or reported ahead of the interval.
	var driftWatcher *cluster.DriftWatcher
	for _, app := range apps {
		if app.SyncPolicy.SelfHealEnabled() {
			driftWatcher = cluster.NewDriftWatcher(clusterClient, nil)
			break
		}
	}

	manager, err := controller.NewManager(controller.ManagerConfig{
		SyncInterval:   stewardCfg.Controller.SyncInterval,
		WorkerCount:    stewardCfg.Controller.Workers,
		MaxRetries:     stewardCfg.Controller.MaxRetries,
		InitialBackoff: stewardCfg.Controller.InitialBackoff,
		MaxBackoff:     stewardCfg.Controller.MaxBackoff,
		CacheDir:       source.DefaultCacheDir(),
	}, engine, apps, driftWatcher)
	if err != nil {
		return nil, fmt.Errorf("building controller: %w", err)
	}

	application := &Application{config: cfg, manager: manager}

	if stewardCfg.Server.Enabled == nil || *stewardCfg.Server.Enabled {
		application.server = server.New(stewardCfg.Server, manager)
	}

	return application, nil
}

func initLogging(cfg *Config) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}

	format := logging.FormatText
	if cfg.JSONLog {
		format = logging.FormatJSON
	}

	var output io.Writer = os.Stdout
	if cfg.Silent {
		output = io.Discard
	}

	logging.Init(level, format, output)
}
