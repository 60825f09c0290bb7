package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/app"
)

var (
	serveDebug      bool
	serveJSONLog    bool
	serveConfigPath string
)

// serveCmd runs the reconciliation controller and the HTTP API as a
// long-running process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation controller",
	Long: `Run the steward controller as a long-running process.

The controller reconciles every configured application on its sync interval,
reacts to manifest source changes, and (when self-heal is enabled) to drift
in the cluster. An HTTP server exposes application status, manual sync
triggers, webhook ingestion, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.NewConfig(serveDebug, false, serveJSONLog, serveConfigPath)

		application, err := app.NewApplication(cfg)
		if err != nil {
			return err
		}
		return application.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveJSONLog, "json-log", false, "Write logs as JSON")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Configuration directory (default: ~/.config/steward)")
	rootCmd.AddCommand(serveCmd)
}
