package formatting

import (
	"encoding/json"
	"fmt"
	"time"

	"steward/internal/diff"
)

// Truncate shortens a string to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// Age renders a timestamp as a compact kubectl-style age ("5m", "2h", "3d").
func Age(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}

	d := time.Since(*t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// diffView flattens a diff result into a serialization-friendly shape. The
// raw Result carries full object bodies; the view keeps only identities.
func diffView(result diff.Result) map[string]interface{} {
	operations := make([]map[string]string, 0, len(result.Operations))
	for _, op := range result.Operations {
		operations = append(operations, map[string]string{
			"type":     string(op.Type),
			"resource": op.Key.String(),
		})
	}

	orphans := make([]string, 0, len(result.Orphans))
	for _, key := range result.Orphans {
		orphans = append(orphans, key.String())
	}

	inSync := make([]string, 0, len(result.InSync))
	for _, key := range result.InSync {
		inSync = append(inSync, key.String())
	}

	return map[string]interface{}{
		"operations": operations,
		"orphans":    orphans,
		"inSync":     inSync,
	}
}

// jsonRoundTrip re-encodes a value through JSON so struct tags apply.
func jsonRoundTrip(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
