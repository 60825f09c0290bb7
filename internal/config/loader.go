package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"steward/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/steward"
	configFileName = "config.yaml"
	appsDirName    = "apps"
)

// GetDefaultConfigPathOrPanic returns the per-user configuration directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads the main configuration from a directory. The directory
// should contain config.yaml and an apps/ subdirectory with one YAML file
// per application definition.
//
// A missing config.yaml is not an error; defaults are used.
func LoadConfig(configPath string) (StewardConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := StewardConfig{}

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyDefaults(&cfg)
			return cfg, nil
		}
		return StewardConfig{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return StewardConfig{}, fmt.Errorf("error parsing config from %s: %w", configFilePath, err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return StewardConfig{}, fmt.Errorf("invalid config in %s: %w", configFilePath, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return cfg, nil
}

// LoadApplications loads all application definitions from the apps/
// subdirectory of the given configuration path.
//
// A single malformed definition does not prevent the others from loading;
// it is reported in the returned error slice instead.
func LoadApplications(configPath string) ([]Application, []error) {
	appsDir := filepath.Join(configPath, appsDirName)

	entries, err := os.ReadDir(appsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No apps directory at %s", appsDir)
			return nil, nil
		}
		return nil, []error{fmt.Errorf("error reading apps directory %s: %w", appsDir, err)}
	}

	var apps []Application
	var loadErrs []error
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(appsDir, entry.Name())
		app, err := LoadApplication(path)
		if err != nil {
			loadErrs = append(loadErrs, err)
			continue
		}

		if prev, dup := seen[app.Name]; dup {
			loadErrs = append(loadErrs, fmt.Errorf("duplicate application %q in %s (already defined in %s)", app.Name, path, prev))
			continue
		}
		seen[app.Name] = path
		apps = append(apps, app)
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

	logging.Info("ConfigLoader", "Loaded %d application definition(s) from %s", len(apps), appsDir)
	return apps, loadErrs
}

// LoadApplication loads and validates a single application definition file.
func LoadApplication(path string) (Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Application{}, fmt.Errorf("error reading application from %s: %w", path, err)
	}

	var app Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return Application{}, fmt.Errorf("error parsing application from %s: %w", path, err)
	}

	inferSourceType(&app)

	if err := app.Validate(); err != nil {
		return Application{}, fmt.Errorf("invalid application in %s: %w", path, err)
	}

	return app, nil
}

// inferSourceType fills in Source.Type when the definition left it implicit.
func inferSourceType(app *Application) {
	if app.Source.Type != "" {
		return
	}
	if app.Source.RepoURL != "" {
		app.Source.Type = SourceTypeGit
		return
	}
	if app.Source.Path != "" {
		app.Source.Type = SourceTypeDirectory
	}
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
