package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"steward/internal/resource"
	"steward/pkg/logging"
)

// Input describes one rendering request: a fetched manifest tree plus the
// application's rendering options.
type Input struct {
	// Dir is the root of the fetched manifest tree.
	Dir string

	// Revision is the source revision the tree was fetched at. It is
	// attached to the output for status reporting.
	Revision string

	// Application is the owning application name; the tracking labels are
	// injected into every rendered object.
	Application string

	// Kustomize renders Dir as a kustomization instead of reading plain
	// YAML files.
	Kustomize bool

	// Parameters are substituted into manifests that use template syntax.
	Parameters map[string]string
}

// Output is a rendered desired-state set. Resources are immutable for a
// given revision; a new revision produces a fresh Output.
type Output struct {
	// Resources is the desired set, in stable (file, document) order.
	Resources []*unstructured.Unstructured

	// Revision echoes the input revision.
	Revision string

	// Errors holds per-document validation failures. A failing document is
	// excluded from Resources without affecting sibling documents.
	Errors []error
}

// Render turns a manifest tree into the desired-state set.
//
// It returns an error only for whole-tree failures (unreadable directory,
// kustomize build failure). Per-document problems land in Output.Errors.
func Render(in Input) (Output, error) {
	out := Output{Revision: in.Revision}

	var streams []manifestStream
	if in.Kustomize {
		data, err := buildKustomize(in.Dir)
		if err != nil {
			return Output{}, err
		}
		streams = []manifestStream{{source: filepath.Join(in.Dir, "kustomization"), data: data}}
	} else {
		var err error
		streams, err = readManifestFiles(in.Dir)
		if err != nil {
			return Output{}, err
		}
	}

	seen := make(map[resource.Key]string)

	for _, stream := range streams {
		data, err := expandParameters(stream.source, stream.data, in.Parameters)
		if err != nil {
			out.Errors = append(out.Errors, ValidationError{Source: stream.source, Reason: err.Error()})
			continue
		}

		for i, doc := range splitDocuments(data) {
			obj, err := parseDocument(stream.source, i, doc)
			if err != nil {
				out.Errors = append(out.Errors, err)
				continue
			}
			if obj == nil {
				continue
			}

			key := resource.KeyFor(obj)
			if prev, dup := seen[key]; dup {
				out.Errors = append(out.Errors, ValidationError{
					Source:   stream.source,
					Document: i,
					Reason:   fmt.Sprintf("duplicate resource %s (already defined in %s)", key, prev),
				})
				continue
			}
			seen[key] = stream.source

			if in.Application != "" {
				resource.Label(obj, in.Application)
			}
			out.Resources = append(out.Resources, obj)
		}
	}

	logging.Debug("Renderer", "Rendered %d resource(s) at revision %s (%d validation error(s))",
		len(out.Resources), in.Revision, len(out.Errors))
	return out, nil
}

// manifestStream is one YAML stream with its origin for error reporting.
type manifestStream struct {
	source string
	data   []byte
}

// readManifestFiles collects all YAML files under dir, sorted by path so the
// desired set has a stable order across passes.
func readManifestFiles(dir string) ([]manifestStream, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories such as .git in fetched worktrees.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isYAMLFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking manifest directory %s: %w", dir, err)
	}

	sort.Strings(paths)

	streams := make([]manifestStream, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest %s: %w", path, err)
		}
		streams = append(streams, manifestStream{source: path, data: data})
	}

	return streams, nil
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
