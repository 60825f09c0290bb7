package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeOutOfSync indicates the diff command found drift. This mirrors
	// the exit convention of diff(1) so scripts can branch on it.
	ExitCodeOutOfSync = 2
)

// outOfSyncError is returned by the diff command when drift exists. It
// carries no message; the diff itself was already printed.
type outOfSyncError struct{}

func (outOfSyncError) Error() string { return "resources are out of sync" }

// rootCmd represents the base command for the steward application.
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Keep Kubernetes clusters in sync with declarative manifest sources",
	Long: `steward continuously reconciles Kubernetes clusters against declarative
manifest sources (git repositories or local directories). It renders the
desired state, diffs it against the live cluster, and applies the minimal
set of changes, with pruning, self-healing, and health reporting governed
by per-application sync policies.`,
	// SilenceUsage prevents cobra from printing usage on handled errors.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "steward version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes for scripting.
func getExitCode(err error) int {
	var outOfSync outOfSyncError
	if errors.As(err, &outOfSync) {
		return ExitCodeOutOfSync
	}
	return ExitCodeError
}
