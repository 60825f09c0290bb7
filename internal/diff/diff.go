package diff

import (
	"fmt"
	"sort"

	apiequality "k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"steward/internal/resource"
	"steward/pkg/logging"
)

// OperationType classifies one entry of a patch set.
type OperationType string

const (
	// OperationCreate creates a resource that exists in the desired set only.
	OperationCreate OperationType = "Create"

	// OperationUpdate corrects a live resource whose normalized body
	// diverged from the desired one.
	OperationUpdate OperationType = "Update"

	// OperationPrune deletes a tracked live resource that left the desired
	// set. Emitted only when the prune policy is enabled.
	OperationPrune OperationType = "Prune"
)

// Operation is one element of the patch set produced by a diff. It is
// transient: built per reconciliation pass and discarded after application.
type Operation struct {
	Type OperationType
	Key  resource.Key

	// Desired is the rendered object (nil for Prune).
	Desired *unstructured.Unstructured

	// Live is the observed object (nil for Create).
	Live *unstructured.Unstructured
}

// Result is the outcome of diffing a desired set against an observed set.
type Result struct {
	// Operations is the minimal patch set, in input order.
	Operations []Operation

	// Orphans are tracked live resources missing from the desired set when
	// pruning is disabled. They are reported, never touched.
	Orphans []resource.Key

	// InSync are resources whose live state already matches desired state.
	InSync []resource.Key
}

// Empty reports whether applying the result would change nothing.
func (r Result) Empty() bool {
	return len(r.Operations) == 0
}

// Options tunes a diff computation.
type Options struct {
	// Prune emits Prune operations for orphaned live resources instead of
	// reporting them as drift.
	Prune bool
}

// Calculate computes the patch set that transforms the observed set into the
// desired set under normalized field-level comparison.
//
// Desired objects must have distinct identities; a duplicate is a rendering
// defect and returns an error. Live objects are read-only throughout.
func Calculate(desired []*unstructured.Unstructured, live map[resource.Key]*unstructured.Unstructured, opts Options) (Result, error) {
	var result Result

	desiredKeys := make(map[resource.Key]bool, len(desired))
	for _, obj := range desired {
		key := resource.KeyFor(obj)
		if desiredKeys[key] {
			return Result{}, fmt.Errorf("duplicate resource %s in desired set", key)
		}
		desiredKeys[key] = true

		liveObj, exists := live[key]
		if !exists {
			result.Operations = append(result.Operations, Operation{
				Type:    OperationCreate,
				Key:     key,
				Desired: obj,
			})
			continue
		}

		if differs(obj, liveObj) {
			result.Operations = append(result.Operations, Operation{
				Type:    OperationUpdate,
				Key:     key,
				Desired: obj,
				Live:    liveObj,
			})
		} else {
			result.InSync = append(result.InSync, key)
		}
	}

	orphanKeys := make([]resource.Key, 0)
	for key := range live {
		if !desiredKeys[key] {
			orphanKeys = append(orphanKeys, key)
		}
	}
	sort.Slice(orphanKeys, func(i, j int) bool {
		return orphanKeys[i].String() < orphanKeys[j].String()
	})

	for _, key := range orphanKeys {
		liveObj := live[key]
		if opts.Prune {
			result.Operations = append(result.Operations, Operation{
				Type: OperationPrune,
				Key:  key,
				Live: liveObj,
			})
		} else {
			result.Orphans = append(result.Orphans, key)
			logging.Debug("DiffEngine", "Orphaned resource %s left in place (prune disabled)", key)
		}
	}

	return result, nil
}

// differs reports whether the live object drifted from the desired one.
//
// Default comparison only considers fields the manifest spells out; live
// fields added by controllers or defaulting do not count. A resource
// annotated for full-replace management compares entire normalized bodies.
func differs(desired, live *unstructured.Unstructured) bool {
	normDesired := Normalize(desired)
	normLive := Normalize(live)

	if resource.IsReplace(desired) {
		return !apiequality.Semantic.DeepEqual(normDesired.Object, normLive.Object)
	}

	projected := project(normLive.Object, normDesired.Object)
	return !apiequality.Semantic.DeepEqual(normDesired.Object, projected)
}
