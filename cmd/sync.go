package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"steward/internal/cli"
	"steward/internal/controller"
	"steward/internal/source"
	"steward/pkg/logging"
)

var (
	syncDebug      bool
	syncConfigPath string
	syncOutput     string
	syncLocal      bool
)

// syncCmd triggers a manual sync pass for one application. Manual passes
// always write, regardless of the application's sync policy.
var syncCmd = &cobra.Command{
	Use:   "sync <application>",
	Short: "Trigger a sync pass for an application",
	Long: `Trigger a manual sync pass for an application.

When a steward server is running, the pass is queued there so it coalesces
with the controller's own scheduling. Otherwise (or with --local) the pass
runs in-process: fetch, render, diff, and apply directly against the
cluster.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initCLILogging(syncDebug)
		name := args[0]

		if !syncLocal && cli.CheckServerRunning() == nil {
			client := cli.NewClient("")
			if err := client.TriggerSync(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Sync queued for %s", name)))
			return nil
		}

		return runLocalSync(cmd, name)
	},
}

func runLocalSync(cmd *cobra.Command, name string) error {
	cfg, apps, err := loadSetup(syncConfigPath)
	if err != nil {
		return err
	}

	app, err := findApplication(apps, name)
	if err != nil {
		return err
	}

	src, err := source.New(app, source.DefaultCacheDir())
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(syncOutput)
	if err != nil {
		return err
	}

	var result controller.PassResult
	err = cli.WithSpinner(fmt.Sprintf("Syncing %s...", name), func() error {
		result = engine.Run(cmd.Context(), app, src, controller.TriggerManual)
		return result.Err
	})
	if err != nil {
		return err
	}

	for _, renderErr := range result.RenderErrors {
		logging.Warn("CLI", "Render error: %v", renderErr)
	}

	if !result.Applied {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s already in sync at %s", name, result.Revision)))
		return nil
	}

	if err := formatter.FormatOperations(result.Apply.Results); err != nil {
		return err
	}
	if result.Apply.Failed > 0 {
		return fmt.Errorf("%d of %d operation(s) failed", result.Apply.Failed, len(result.Apply.Results))
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s synced to %s (health: %s)", name, result.Revision, result.Health.Status)))
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncDebug, "debug", false, "Enable debug logging")
	syncCmd.Flags().StringVar(&syncConfigPath, "config-path", "", "Configuration directory (default: ~/.config/steward)")
	syncCmd.Flags().StringVarP(&syncOutput, "output", "o", "table", "Output format (table, json, yaml)")
	syncCmd.Flags().BoolVar(&syncLocal, "local", false, "Run the pass in-process even when a server is running")
	rootCmd.AddCommand(syncCmd)
}
