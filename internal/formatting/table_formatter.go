package formatting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"steward/internal/controller"
	"steward/internal/diff"
	"steward/internal/health"
	"steward/internal/syncer"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{options: options}
}

// FormatApplications renders the application overview table
func (f *TableFormatter) FormatApplications(apps []controller.AppStatus) error {
	if len(apps) == 0 {
		fmt.Fprintln(f.options.writer(), "No applications configured")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"NAME", "STATE", "HEALTH", "REVISION", "LAST SYNCED"})

	for _, app := range apps {
		t.AppendRow(table.Row{
			app.Application,
			f.colorState(app.State),
			f.colorHealth(app.Health),
			Truncate(app.Revision, 12),
			Age(app.LastSyncedAt),
		})
	}

	t.Render()
	return nil
}

// FormatApplication renders one application in detail
func (f *TableFormatter) FormatApplication(app controller.AppStatus) error {
	w := f.options.writer()

	t := f.createTable()
	t.AppendRow(table.Row{"Name", app.Application})
	t.AppendRow(table.Row{"State", f.colorState(app.State)})
	t.AppendRow(table.Row{"Health", f.colorHealth(app.Health)})
	t.AppendRow(table.Row{"Revision", app.Revision})
	t.AppendRow(table.Row{"Last synced", Age(app.LastSyncedAt)})
	if app.LastError != "" {
		t.AppendRow(table.Row{"Last error", Truncate(app.LastError, 100)})
	}
	t.Render()

	if len(app.RenderErrors) > 0 {
		fmt.Fprintln(w, "\nRender errors:")
		for _, e := range app.RenderErrors {
			fmt.Fprintf(w, "  %s %s\n", text.FgRed.Sprint("✗"), e)
		}
	}

	if len(app.Orphans) > 0 {
		fmt.Fprintln(w, "\nOrphaned resources (prune disabled):")
		for _, key := range app.Orphans {
			fmt.Fprintf(w, "  %s %s\n", text.FgYellow.Sprint("⚠"), key)
		}
	}

	if len(app.Resources) > 0 {
		fmt.Fprintln(w)
		rt := f.createTable()
		rt.AppendHeader(table.Row{"RESOURCE", "HEALTH", "MESSAGE"})
		for _, r := range app.Resources {
			rt.AppendRow(table.Row{r.Key.String(), f.colorHealth(r.Status), Truncate(r.Message, 60)})
		}
		rt.Render()
	}

	return nil
}

// FormatDiff renders a computed diff as an operation preview
func (f *TableFormatter) FormatDiff(result diff.Result) error {
	w := f.options.writer()

	if result.Empty() && len(result.Orphans) == 0 {
		fmt.Fprintln(w, text.FgGreen.Sprint("✓ In sync: no changes"))
		return nil
	}

	if len(result.Operations) > 0 {
		t := f.createTable()
		t.AppendHeader(table.Row{"OPERATION", "RESOURCE"})
		for _, op := range result.Operations {
			t.AppendRow(table.Row{f.colorOperation(op.Type), op.Key.String()})
		}
		t.Render()
	}

	for _, key := range result.Orphans {
		fmt.Fprintf(w, "%s orphaned: %s\n", text.FgYellow.Sprint("⚠"), key)
	}
	return nil
}

// FormatOperations renders sync pass outcomes
func (f *TableFormatter) FormatOperations(results []syncer.OperationResult) error {
	if len(results) == 0 {
		fmt.Fprintln(f.options.writer(), "No operations performed")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"OPERATION", "RESOURCE", "RESULT"})
	for _, r := range results {
		outcome := text.FgGreen.Sprint("✓")
		if !r.Succeeded() {
			outcome = text.FgRed.Sprint("✗ " + Truncate(r.Error, 60))
		}
		t.AppendRow(table.Row{f.colorOperation(r.Type), r.Key.String(), outcome})
	}
	t.Render()
	return nil
}

// FormatData formats generic data as key-value pairs
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		t := f.createTable()
		t.AppendHeader(table.Row{"KEY", "VALUE"})
		for key, value := range d {
			t.AppendRow(table.Row{key, Truncate(fmt.Sprintf("%v", value), 100)})
		}
		t.Render()
	case string:
		fmt.Fprintln(f.options.writer(), d)
	default:
		fmt.Fprintf(f.options.writer(), "%v\n", d)
	}
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) colorState(state controller.SyncState) string {
	if !f.options.Color {
		return string(state)
	}
	switch state {
	case controller.SyncStateSynced:
		return text.FgGreen.Sprint(state)
	case controller.SyncStateOutOfSync:
		return text.FgYellow.Sprint(state)
	case controller.SyncStateError:
		return text.FgRed.Sprint(state)
	default:
		return string(state)
	}
}

func (f *TableFormatter) colorHealth(status health.Status) string {
	if !f.options.Color {
		return string(status)
	}
	switch status {
	case health.StatusHealthy:
		return text.FgGreen.Sprint(status)
	case health.StatusProgressing:
		return text.FgYellow.Sprint(status)
	case health.StatusDegraded, health.StatusMissing:
		return text.FgRed.Sprint(status)
	default:
		return string(status)
	}
}

func (f *TableFormatter) colorOperation(op diff.OperationType) string {
	if !f.options.Color {
		return string(op)
	}
	switch op {
	case diff.OperationCreate:
		return text.FgGreen.Sprint(op)
	case diff.OperationUpdate:
		return text.FgYellow.Sprint(op)
	case diff.OperationPrune:
		return text.FgRed.Sprint(op)
	default:
		return string(op)
	}
}
