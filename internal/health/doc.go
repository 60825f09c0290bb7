// Package health assesses the readiness of live resources and folds the
// per-resource results into one application-level status.
//
// Kinds with workload semantics (Deployments, StatefulSets, Jobs and so on)
// get dedicated rules derived from their status fields; everything else is
// healthy as soon as it exists. Aggregation takes the worst status across
// the desired set, with Missing outranking Degraded outranking Progressing.
package health
