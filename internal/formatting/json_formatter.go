package formatting

import (
	"encoding/json"

	"steward/internal/controller"
	"steward/internal/diff"
	"steward/internal/syncer"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) FormatApplications(apps []controller.AppStatus) error {
	return f.FormatData(map[string]interface{}{"applications": apps})
}

func (f *JSONFormatter) FormatApplication(app controller.AppStatus) error {
	return f.FormatData(app)
}

func (f *JSONFormatter) FormatDiff(result diff.Result) error {
	return f.FormatData(diffView(result))
}

func (f *JSONFormatter) FormatOperations(results []syncer.OperationResult) error {
	return f.FormatData(map[string]interface{}{"operations": results})
}

// FormatData marshals any value as indented JSON
func (f *JSONFormatter) FormatData(data interface{}) error {
	encoder := json.NewEncoder(f.options.writer())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}
