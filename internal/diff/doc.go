// Package diff computes the minimal patch set between a rendered desired
// state and an observed cluster snapshot.
//
// Resources are matched by identity (group, kind, namespace, name). Bodies
// are normalized before comparison: status, server-managed metadata and
// kubectl bookkeeping are stripped, and by default only fields the manifest
// spells out participate in the comparison. The classification follows the
// usual GitOps rules:
//
//   - desired but not live       -> Create
//   - both, normalized bodies differ -> Update
//   - live (tracked) but not desired -> Prune when enabled, otherwise
//     reported as an orphan and left untouched
//
// Diffing a converged state yields an empty patch set, which makes a full
// reconciliation pass idempotent.
package diff
