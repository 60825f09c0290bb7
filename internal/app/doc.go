// Package app bootstraps a steward server process: it loads configuration
// and application definitions, connects to the cluster, wires the pass
// engine, the controller, and the HTTP server together, and runs them until
// shutdown.
package app
