// Package config handles loading, validation and defaulting of steward's
// configuration.
//
// Configuration lives in a directory (default: ~/.config/steward, overridable
// with --config-path) with this layout:
//
//	config.yaml     main configuration (server, controller, kubernetes)
//	apps/           one YAML file per application definition
//
// An application definition names a manifest source (local directory or git
// repository), a destination namespace and a sync policy:
//
//	name: web
//	source:
//	  repoURL: https://example.com/ops/manifests.git
//	  revision: main
//	  path: apps/web
//	  kustomize: true
//	destination:
//	  namespace: web
//	syncPolicy:
//	  automated:
//	    prune: true
//	    selfHeal: true
//	  syncInterval: 3m
//
// Loading is tolerant per file: one malformed application definition is
// reported and skipped without blocking the rest.
package config
