package formatting

import (
	"gopkg.in/yaml.v3"

	"steward/internal/controller"
	"steward/internal/diff"
	"steward/internal/syncer"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatApplications(apps []controller.AppStatus) error {
	return f.FormatData(map[string]interface{}{"applications": apps})
}

func (f *YAMLFormatter) FormatApplication(app controller.AppStatus) error {
	return f.FormatData(app)
}

func (f *YAMLFormatter) FormatDiff(result diff.Result) error {
	return f.FormatData(diffView(result))
}

func (f *YAMLFormatter) FormatOperations(results []syncer.OperationResult) error {
	return f.FormatData(map[string]interface{}{"operations": results})
}

// FormatData marshals any value as YAML. Values are round-tripped through
// JSON first so json struct tags decide the field names, keeping YAML and
// JSON output consistent.
func (f *YAMLFormatter) FormatData(data interface{}) error {
	normalized, err := jsonRoundTrip(data)
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(f.options.writer())
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(normalized)
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}
