// Package cluster is steward's view of the live Kubernetes cluster.
//
// Client wraps a controller-runtime client over unstructured objects and
// carries the write surface used by the sync executor. Snapshot produces the
// observed state for one application by listing every tracked kind filtered
// on steward's tracking labels. DriftWatcher keeps informers on the same
// label selector and reports out-of-band changes so self-healing
// applications reconcile before their next interval tick.
package cluster
