package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"steward/internal/render"
	"steward/internal/source"
	"steward/pkg/logging"
)

var (
	renderDebug      bool
	renderConfigPath string
)

// renderCmd renders an application's manifests and prints them, without
// touching the cluster. Useful for inspecting what a sync would apply.
var renderCmd = &cobra.Command{
	Use:   "render <application>",
	Short: "Render an application's manifests",
	Long: `Fetch an application's source and render its manifests to stdout as a
multi-document YAML stream. No cluster connection is made; namespace
defaulting that depends on cluster discovery is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initCLILogging(renderDebug)
		name := args[0]

		_, apps, err := loadSetup(renderConfigPath)
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

		tree, err := src.Fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching source: %w", err)
		}

		rendered, err := render.Render(render.Input{
			Dir:         tree.Dir,
			Revision:    tree.Revision,
			Application: app.Name,
			Kustomize:   app.Source.Kustomize,
			Parameters:  app.Source.Parameters,
		})
		if err != nil {
			return fmt.Errorf("rendering manifests: %w", err)
		}

		for _, renderErr := range rendered.Errors {
			logging.Warn("CLI", "Render error: %v", renderErr)
		}

		for i, obj := range rendered.Resources {
			data, err := yaml.Marshal(obj.Object)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Println("---")
			}
			os.Stdout.Write(data)
		}

		if len(rendered.Errors) > 0 {
			return fmt.Errorf("%d document(s) failed to render", len(rendered.Errors))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderDebug, "debug", false, "Enable debug logging")
	renderCmd.Flags().StringVar(&renderConfigPath, "config-path", "", "Configuration directory (default: ~/.config/steward)")
	rootCmd.AddCommand(renderCmd)
}
