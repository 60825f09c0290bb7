// Package controller runs the reconciliation loop.
//
// The Engine executes a single pass: fetch the source, render the desired
// set, snapshot the cluster, diff, apply when the trigger and sync policy
// allow, and assess health. The Manager schedules passes: periodic interval
// ticks, debounced source change events, drift events from the cluster
// watcher, and manual triggers all feed a deduplicating work queue that
// guarantees one in-flight pass per application.
package controller
