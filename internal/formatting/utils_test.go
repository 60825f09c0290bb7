package formatting

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/controller"
	"steward/internal/diff"
	"steward/internal/resource"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "lon...", Truncate("longer string", 6))
}

func TestAge(t *testing.T) {
	assert.Equal(t, "never", Age(nil))

	recent := time.Now().Add(-30 * time.Second)
	assert.Equal(t, "30s", Age(&recent))

	hours := time.Now().Add(-3 * time.Hour)
	assert.Equal(t, "3h", Age(&hours))

	days := time.Now().Add(-49 * time.Hour)
	assert.Equal(t, "2d", Age(&days))
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("table"))
	assert.NoError(t, ValidateFormat("json"))
	assert.NoError(t, ValidateFormat("yaml"))
	assert.Error(t, ValidateFormat("xml"))
}

func TestJSONFormatter_Applications(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, f.FormatApplications([]controller.AppStatus{
		{Application: "web", State: controller.SyncStateSynced},
	}))

	var out struct {
		Applications []controller.AppStatus `json:"applications"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Applications, 1)
	assert.Equal(t, "web", out.Applications[0].Application)
}

func TestTableFormatter_DiffPreview(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(Options{Format: FormatTable, Writer: &buf})

	result := diff.Result{
		Operations: []diff.Operation{
			{Type: diff.OperationCreate, Key: resource.Key{Kind: "ConfigMap", Namespace: "prod", Name: "settings"}},
		},
		Orphans: []resource.Key{{Kind: "Secret", Namespace: "prod", Name: "stale"}},
	}

	require.NoError(t, f.FormatDiff(result))
	assert.Contains(t, buf.String(), "Create")
	assert.Contains(t, buf.String(), "settings")
	assert.Contains(t, buf.String(), "stale")
}

func TestTableFormatter_EmptyDiff(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(Options{Format: FormatTable, Writer: &buf})

	require.NoError(t, f.FormatDiff(diff.Result{}))
	assert.Contains(t, buf.String(), "In sync")
}

func TestYAMLFormatter_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(Options{Format: FormatYAML, Writer: &buf})

	require.NoError(t, f.FormatApplication(controller.AppStatus{
		Application: "web",
		State:       controller.SyncStateSynced,
	}))
	assert.Contains(t, buf.String(), "application: web")
	assert.Contains(t, buf.String(), "state: Synced")
}
