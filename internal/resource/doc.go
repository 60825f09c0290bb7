// Package resource defines the identity model and tracking metadata shared
// by the renderer, diff engine, sync executor and cluster observer.
//
// A resource is identified by its group, kind, namespace and name. Tracking
// of managed resources uses labels (app.kubernetes.io/managed-by plus
// steward.io/application) so that orphaned live resources can be detected
// without an inventory object.
package resource
