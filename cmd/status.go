package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/cli"
)

var (
	statusDebug  bool
	statusOutput string
)

// statusCmd reports application status from a running steward server.
var statusCmd = &cobra.Command{
	Use:   "status [application]",
	Short: "Show application sync and health status",
	Long: `Show the sync state, health, revision, and last error of configured
applications, as seen by the running steward server. Without arguments all
applications are listed; with an application name the full status including
per-resource health and orphans is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initCLILogging(statusDebug)

		if err := cli.CheckServerRunning(); err != nil {
			return err
		}

		formatter, err := newFormatter(statusOutput)
		if err != nil {
			return err
		}

		client := cli.NewClient("")

		if len(args) == 1 {
			status, err := client.GetApplication(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return formatter.FormatApplication(status)
		}

		statuses, err := client.ListApplications(cmd.Context())
		if err != nil {
			return err
		}
		return formatter.FormatApplications(statuses)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusDebug, "debug", false, "Enable debug logging")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}
