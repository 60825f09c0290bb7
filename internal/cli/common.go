package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"steward/internal/config"
)

// EndpointEnvVar overrides the server endpoint for CLI commands.
const EndpointEnvVar = "STEWARD_ENDPOINT"

// DetectServerEndpoint resolves the base URL of the running steward server
// from the environment or the configuration.
func DetectServerEndpoint() string {
	if endpoint := os.Getenv(EndpointEnvVar); endpoint != "" {
		return endpoint
	}

	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
	if err != nil {
		return "http://localhost:8090"
	}

	host := cfg.Server.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Server.Port
	if port == 0 {
		port = 8090
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// CheckServerRunning probes the health endpoint of a running steward server.
func CheckServerRunning() error {
	endpoint := DetectServerEndpoint()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(endpoint + "/healthz")
	if err != nil {
		return fmt.Errorf("steward server is not running. Start it with: steward serve")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steward server is not healthy (status: %d)", resp.StatusCode)
	}
	return nil
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
