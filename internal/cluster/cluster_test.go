package cluster

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"steward/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDefault()
	os.Exit(m.Run())
}

// stubScoper answers scope questions from a fixed table.
type stubScoper struct {
	namespaced map[schema.GroupKind]bool
}

func (s *stubScoper) IsNamespaced(gk schema.GroupKind) (bool, error) {
	namespaced, ok := s.namespaced[gk]
	if !ok {
		return false, &noMatchError{gk: gk}
	}
	return namespaced, nil
}

type noMatchError struct{ gk schema.GroupKind }

func (e *noMatchError) Error() string { return "no match for " + e.gk.String() }

func obj(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   map[string]interface{}{"name": name},
	}}
	if namespace != "" {
		u.SetNamespace(namespace)
	}
	return u
}

func TestDefaultNamespaces(t *testing.T) {
	scoper := &stubScoper{namespaced: map[schema.GroupKind]bool{
		{Kind: "ConfigMap"}:                  true,
		{Kind: "Namespace"}:                  false,
		{Group: "apps", Kind: "Deployment"}:  true,
		{Group: "rbac.authorization.k8s.io", Kind: "ClusterRole"}: false,
	}}

	cm := obj("v1", "ConfigMap", "", "settings")
	pinned := obj("v1", "ConfigMap", "other", "pinned")
	ns := obj("v1", "Namespace", "", "prod")
	deploy := obj("apps/v1", "Deployment", "", "web")
	clusterRole := obj("rbac.authorization.k8s.io/v1", "ClusterRole", "", "reader")
	unknown := obj("example.com/v1", "Widget", "", "w")

	DefaultNamespaces(scoper, []*unstructured.Unstructured{cm, pinned, ns, deploy, clusterRole, unknown}, "prod")

	assert.Equal(t, "prod", cm.GetNamespace())
	assert.Equal(t, "prod", deploy.GetNamespace())

	// An explicit namespace in the manifest wins over the destination.
	assert.Equal(t, "other", pinned.GetNamespace())

	// Cluster-scoped and unknown kinds are left alone.
	assert.Empty(t, ns.GetNamespace())
	assert.Empty(t, clusterRole.GetNamespace())
	assert.Empty(t, unknown.GetNamespace())
}

func TestDefaultNamespaces_NoDestination(t *testing.T) {
	scoper := &stubScoper{namespaced: map[schema.GroupKind]bool{{Kind: "ConfigMap"}: true}}
	cm := obj("v1", "ConfigMap", "", "settings")

	DefaultNamespaces(scoper, []*unstructured.Unstructured{cm}, "")
	assert.Empty(t, cm.GetNamespace())
}

func TestMergeGVKs(t *testing.T) {
	a := []schema.GroupVersionKind{
		{Version: "v1", Kind: "ConfigMap"},
		{Group: "example.com", Version: "v1", Kind: "Widget"},
	}
	b := []schema.GroupVersionKind{
		{Version: "v1", Kind: "ConfigMap"},
		{Version: "v1", Kind: "Secret"},
	}

	merged := mergeGVKs(a, b)
	assert.Equal(t, []schema.GroupVersionKind{
		{Version: "v1", Kind: "ConfigMap"},
		{Group: "example.com", Version: "v1", Kind: "Widget"},
		{Version: "v1", Kind: "Secret"},
	}, merged)
}

func TestGVKsOf(t *testing.T) {
	objs := []*unstructured.Unstructured{
		obj("v1", "ConfigMap", "", "a"),
		obj("v1", "ConfigMap", "", "b"),
		obj("apps/v1", "Deployment", "", "web"),
	}

	gvks := GVKsOf(objs)
	assert.Equal(t, []schema.GroupVersionKind{
		{Version: "v1", Kind: "ConfigMap"},
		{Group: "apps", Version: "v1", Kind: "Deployment"},
	}, gvks)
}
