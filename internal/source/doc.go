// Package source fetches versioned manifest trees from a source of truth.
//
// Two implementations exist: DirectorySource serves a local directory whose
// revision is a content hash, and GitSource keeps a per-application working
// copy of a git repository and resolves the tracked revision to a commit SHA
// on every fetch.
//
// Change notification is split from fetching: DirectoryWatcher turns
// fsnotify events into debounced reconciliation triggers. Git sources have
// no push channel of their own; they are covered by the periodic sync
// interval and by the webhook endpoint of the status server.
package source
