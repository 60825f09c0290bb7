// Package render turns a fetched manifest tree into a typed desired-state
// set.
//
// Three layers run in order: optional kustomize overlay building, optional
// parameter templating (text/template with the sprig function map, applied
// only to files that contain template actions), and multi-document YAML
// parsing into unstructured objects. Each rendered object gets steward's
// tracking labels injected.
//
// Validation failures are isolated per document: a malformed document is
// reported in Output.Errors and skipped, while the remaining documents of
// the same tree render normally.
package render
