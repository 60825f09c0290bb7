package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"steward/internal/cli"
	"steward/internal/config"
)

var validateConfigPath string

// validateCmd checks the configuration directory without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate steward configuration",
	Long: `Load the configuration file and every application definition, reporting
each problem found. Exits non-zero when anything is invalid. The cluster is
not contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initCLILogging(false)

		configPath := validateConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}

		if _, err := config.LoadConfig(configPath); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		apps, loadErrs := config.LoadApplications(configPath)
		for _, loadErr := range loadErrs {
			fmt.Println(cli.FormatWarning(loadErr.Error()))
		}

		if len(loadErrs) > 0 {
			return fmt.Errorf("%d invalid application definition(s)", len(loadErrs))
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Configuration valid (%d application(s))", len(apps))))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config-path", "", "Configuration directory (default: ~/.config/steward)")
	rootCmd.AddCommand(validateCmd)
}
