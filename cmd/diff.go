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
	diffDebug      bool
	diffConfigPath string
	diffOutput     string
)

// diffCmd compares the rendered desired state against the live cluster
// without writing anything.
var diffCmd = &cobra.Command{
	Use:   "diff <application>",
	Short: "Show drift between desired and live state",
	Long: `Render an application's desired state and diff it against the live
cluster without applying anything.

Exits 0 when the application is in sync, 2 when drift exists, and 1 on
errors, mirroring diff(1) so scripts can branch on the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initCLILogging(diffDebug)
		name := args[0]

		cfg, apps, err := loadSetup(diffConfigPath)
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

		formatter, err := newFormatter(diffOutput)
		if err != nil {
			return err
		}

		var result controller.PassResult
		err = cli.WithSpinner(fmt.Sprintf("Diffing %s...", name), func() error {
			result = engine.Preview(cmd.Context(), app, src)
			return result.Err
		})
		if err != nil {
			return err
		}

		for _, renderErr := range result.RenderErrors {
			logging.Warn("CLI", "Render error: %v", renderErr)
		}

		if err := formatter.FormatDiff(result.Diff); err != nil {
			return err
		}

		if !result.Diff.Empty() {
			return outOfSyncError{}
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffDebug, "debug", false, "Enable debug logging")
	diffCmd.Flags().StringVar(&diffConfigPath, "config-path", "", "Configuration directory (default: ~/.config/steward)")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(diffCmd)
}
