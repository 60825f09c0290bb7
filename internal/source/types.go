package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"steward/internal/config"
)

// Tree is a fetched manifest tree: a directory on local disk pinned to a
// source revision. The directory is owned by the source and valid until the
// next Fetch for the same application.
type Tree struct {
	// Dir is the root directory holding the manifests.
	Dir string

	// Revision identifies the content: a commit SHA for git sources, a
	// content hash for directory sources.
	Revision string
}

// Source fetches a versioned manifest tree from a source of truth.
type Source interface {
	// Fetch retrieves the tree at the currently tracked revision.
	Fetch(ctx context.Context) (Tree, error)
}

// Event signals that a source changed and the owning application should be
// reconciled ahead of schedule.
type Event struct {
	// Application is the name of the affected application.
	Application string

	// Timestamp is when the change was detected.
	Timestamp time.Time
}

// Watcher emits Events when a source changes. Only directory sources support
// inotify-grade watching; git sources rely on the periodic sync interval and
// the webhook endpoint.
type Watcher interface {
	// Start begins watching and sends events to the provided channel.
	Start(ctx context.Context, events chan<- Event) error

	// Stop gracefully stops the watcher.
	Stop() error
}

// DefaultCacheDir is the per-user directory for git working copies. The
// server and the one-shot commands share it so fetches stay incremental.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "steward", "repos")
}

// New constructs the Source for an application definition. cacheDir is where
// git sources keep their working copies.
func New(app config.Application, cacheDir string) (Source, error) {
	switch app.Source.Type {
	case config.SourceTypeDirectory:
		return NewDirectorySource(app.Source.Path), nil
	case config.SourceTypeGit:
		return NewGitSource(app.Name, app.Source, cacheDir), nil
	default:
		return nil, fmt.Errorf("application %s: unknown source type %q", app.Name, app.Source.Type)
	}
}
