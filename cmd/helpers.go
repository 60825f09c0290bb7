package cmd

import (
	"fmt"
	"os"

	"steward/internal/cluster"
	"steward/internal/config"
	"steward/internal/controller"
	"steward/internal/formatting"
	"steward/internal/syncer"
	"steward/pkg/logging"
)

// initCLILogging configures logging for one-shot commands. Results go to
// stdout, so logs go to stderr and stay quiet unless --debug is set.
func initCLILogging(debug bool) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logging.FormatText, os.Stderr)
}

// loadSetup loads the configuration directory for a one-shot command.
func loadSetup(configPath string) (config.StewardConfig, []config.Application, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.StewardConfig{}, nil, err
	}

	apps, loadErrs := config.LoadApplications(configPath)
	for _, loadErr := range loadErrs {
		logging.Warn("CLI", "Skipping application definition: %v", loadErr)
	}
	return cfg, apps, nil
}

// findApplication resolves one application by name.
func findApplication(apps []config.Application, name string) (config.Application, error) {
	for _, app := range apps {
		if app.Name == name {
			return app, nil
		}
	}
	return config.Application{}, fmt.Errorf("unknown application %q (%d defined)", name, len(apps))
}

// newEngine connects to the cluster and builds a pass engine for one-shot
// sync and diff commands.
func newEngine(cfg config.StewardConfig) (*controller.Engine, error) {
	clusterClient, err := cluster.NewClient(cfg.Kubernetes)
	if err != nil {
		return nil, fmt.Errorf("connecting to the cluster: %w", err)
	}

	executor := syncer.NewExecutor(clusterClient, syncer.Options{
		MaxRetries:       cfg.Controller.MaxRetries,
		InitialBackoff:   cfg.Controller.InitialBackoff,
		MaxBackoff:       cfg.Controller.MaxBackoff,
		OperationTimeout: cfg.Controller.OperationTimeout,
	})
	return controller.NewEngine(clusterClient, executor), nil
}

// newFormatter builds the output formatter for the --output flag.
func newFormatter(format string) (formatting.Formatter, error) {
	if err := formatting.ValidateFormat(format); err != nil {
		return nil, err
	}
	return formatting.NewFormatter(formatting.Options{
		Format: formatting.OutputFormat(format),
		Color:  stdoutIsTerminal(),
	}), nil
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

