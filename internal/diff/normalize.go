package diff

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// lastAppliedAnnotation is kubectl's client-side apply bookkeeping; it never
// represents desired state and is excluded from comparison.
const lastAppliedAnnotation = "kubectl.kubernetes.io/last-applied-configuration"

// serverManagedMetadata lists metadata fields owned by the API server.
// They differ between a rendered manifest and any live object and must not
// count as drift.
var serverManagedMetadata = []string{
	"creationTimestamp",
	"deletionTimestamp",
	"deletionGracePeriodSeconds",
	"generation",
	"managedFields",
	"resourceVersion",
	"selfLink",
	"uid",
	"finalizers",
	"ownerReferences",
}

// Normalize returns a copy of obj with server-managed fields removed so that
// a rendered manifest and its live counterpart become comparable.
func Normalize(obj *unstructured.Unstructured) *unstructured.Unstructured {
	if obj == nil {
		return nil
	}

	out := obj.DeepCopy()
	unstructured.RemoveNestedField(out.Object, "status")

	for _, field := range serverManagedMetadata {
		unstructured.RemoveNestedField(out.Object, "metadata", field)
	}

	if annotations := out.GetAnnotations(); annotations != nil {
		delete(annotations, lastAppliedAnnotation)
		if len(annotations) == 0 {
			unstructured.RemoveNestedField(out.Object, "metadata", "annotations")
		} else {
			out.SetAnnotations(annotations)
		}
	}

	pruneEmpty(out.Object)
	return out
}

// pruneEmpty removes nil values recursively. API server defaulting tends to
// materialize null fields that manifests do not spell out. Empty maps are
// kept: "emptyDir: {}" is meaningful and must survive comparison.
func pruneEmpty(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case map[string]interface{}:
			pruneEmpty(val)
		case []interface{}:
			for _, item := range val {
				if sub, ok := item.(map[string]interface{}); ok {
					pruneEmpty(sub)
				}
			}
		}
	}
}

// project returns the subset of live that is addressed by desired: for every
// map, only keys present in desired are kept. Lists are taken from live
// wholesale since positional merging is not defined for them.
//
// Comparing desired against its own projection of live implements the
// tie-break rule that live fields not present in the manifest are left
// untouched and do not count as drift.
func project(live, desired interface{}) interface{} {
	desiredMap, dOK := desired.(map[string]interface{})
	liveMap, lOK := live.(map[string]interface{})
	if !dOK || !lOK {
		return live
	}

	out := make(map[string]interface{}, len(desiredMap))
	for key, desiredVal := range desiredMap {
		liveVal, present := liveMap[key]
		if !present {
			continue
		}
		out[key] = project(liveVal, desiredVal)
	}
	return out
}
