// Package formatting renders steward's CLI output in the supported output
// formats (table, JSON, YAML) behind one Formatter interface, so commands
// stay free of presentation logic.
package formatting

import (
	"io"
	"os"

	"steward/internal/controller"
	"steward/internal/diff"
	"steward/internal/syncer"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output (default)
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
	Writer io.Writer
}

func (o Options) writer() io.Writer {
	if o.Writer != nil {
		return o.Writer
	}
	return os.Stdout
}

// Formatter renders steward domain objects for the terminal
type Formatter interface {
	// Application status formatting
	FormatApplications(apps []controller.AppStatus) error
	FormatApplication(app controller.AppStatus) error

	// Diff and sync pass formatting
	FormatDiff(result diff.Result) error
	FormatOperations(results []syncer.OperationResult) error

	// Generic data formatting
	FormatData(data interface{}) error

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// NewFormatter creates the appropriate formatter for the requested format
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// ValidateFormat checks that format names a supported output format
func ValidateFormat(format string) error {
	switch OutputFormat(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return &UnsupportedFormatError{Format: format}
	}
}

// UnsupportedFormatError reports an unknown output format flag value
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported output format: " + e.Format + " (valid: table, json, yaml)"
}
