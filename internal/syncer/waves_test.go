package syncer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"steward/internal/diff"
	"steward/internal/resource"
	"steward/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDefault()
	os.Exit(m.Run())
}

func testObj(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   map[string]interface{}{"name": name},
	}}
	if namespace != "" {
		obj.SetNamespace(namespace)
	}
	return obj
}

func annotate(obj *unstructured.Unstructured, key, value string) *unstructured.Unstructured {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[key] = value
	obj.SetAnnotations(annotations)
	return obj
}

func createOp(obj *unstructured.Unstructured) diff.Operation {
	return diff.Operation{Type: diff.OperationCreate, Key: resource.KeyFor(obj), Desired: obj}
}

func pruneOp(obj *unstructured.Unstructured) diff.Operation {
	return diff.Operation{Type: diff.OperationPrune, Key: resource.KeyFor(obj), Live: obj}
}

func flatten(waves []Wave) []resource.Key {
	var keys []resource.Key
	for _, wave := range waves {
		for _, op := range wave.Operations {
			keys = append(keys, op.Key)
		}
	}
	return keys
}

func TestPlan_KindPriorityOrdering(t *testing.T) {
	deployment := testObj("apps/v1", "Deployment", "prod", "web")
	namespace := testObj("v1", "Namespace", "", "prod")
	configMap := testObj("v1", "ConfigMap", "prod", "settings")
	service := testObj("v1", "Service", "prod", "web")

	waves := Plan([]diff.Operation{
		createOp(deployment),
		createOp(namespace),
		createOp(configMap),
		createOp(service),
	})

	keys := flatten(waves)
	require.Len(t, keys, 4)
	assert.Equal(t, "Namespace", keys[0].Kind)
	assert.Equal(t, "ConfigMap", keys[1].Kind)
	assert.Equal(t, "Service", keys[2].Kind)
	assert.Equal(t, "Deployment", keys[3].Kind)

	// The namespace sits alone in its tier so nothing races its creation.
	assert.Len(t, waves[0].Operations, 1)
}

func TestPlan_AnnotatedWavesDominateKindPriority(t *testing.T) {
	early := annotate(testObj("apps/v1", "Deployment", "prod", "migrations"), resource.SyncWaveAnnotation, "-1")
	namespace := testObj("v1", "Namespace", "", "prod")

	waves := Plan([]diff.Operation{createOp(namespace), createOp(early)})

	keys := flatten(waves)
	require.Len(t, keys, 2)
	assert.Equal(t, "Deployment", keys[0].Kind)
	assert.Equal(t, "Namespace", keys[1].Kind)
}

func TestPlan_PrunesTrailAndReverse(t *testing.T) {
	namespace := testObj("v1", "Namespace", "", "old")
	deployment := testObj("apps/v1", "Deployment", "old", "web")
	newCM := testObj("v1", "ConfigMap", "prod", "settings")

	waves := Plan([]diff.Operation{
		pruneOp(namespace),
		createOp(newCM),
		pruneOp(deployment),
	})

	keys := flatten(waves)
	require.Len(t, keys, 3)

	// Creates before any prune; the namespace is pruned last.
	assert.Equal(t, "ConfigMap", keys[0].Kind)
	assert.Equal(t, "Deployment", keys[1].Kind)
	assert.Equal(t, "Namespace", keys[2].Kind)
}

func TestPlan_Empty(t *testing.T) {
	assert.Empty(t, Plan(nil))
}
