package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func newObj(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       kind,
	}}
	obj.SetName(name)
	if namespace != "" {
		obj.SetNamespace(namespace)
	}
	return obj
}

func TestKeyFor(t *testing.T) {
	obj := newObj("apps/v1", "Deployment", "web", "frontend")

	key := KeyFor(obj)

	assert.Equal(t, Key{Group: "apps", Kind: "Deployment", Namespace: "web", Name: "frontend"}, key)
}

func TestKeyIgnoresVersion(t *testing.T) {
	v1 := newObj("networking.k8s.io/v1", "Ingress", "web", "frontend")
	v1beta1 := newObj("networking.k8s.io/v1beta1", "Ingress", "web", "frontend")

	assert.Equal(t, KeyFor(v1), KeyFor(v1beta1))
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "core namespaced",
			key:  Key{Kind: "ConfigMap", Namespace: "web", Name: "settings"},
			want: "ConfigMap web/settings",
		},
		{
			name: "grouped namespaced",
			key:  Key{Group: "apps", Kind: "Deployment", Namespace: "web", Name: "frontend"},
			want: "apps/Deployment web/frontend",
		},
		{
			name: "cluster scoped",
			key:  Key{Kind: "Namespace", Name: "web"},
			want: "Namespace web",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestSyncWave(t *testing.T) {
	obj := newObj("v1", "ConfigMap", "web", "settings")
	assert.Equal(t, 0, SyncWave(obj), "no annotation defaults to wave 0")
	assert.Equal(t, 0, SyncWave(nil))

	obj.SetAnnotations(map[string]string{SyncWaveAnnotation: "-5"})
	assert.Equal(t, -5, SyncWave(obj))

	obj.SetAnnotations(map[string]string{SyncWaveAnnotation: "not-a-number"})
	assert.Equal(t, 0, SyncWave(obj), "malformed values fall back to wave 0")
}

func TestIsReplace(t *testing.T) {
	obj := newObj("v1", "Secret", "web", "credentials")
	assert.False(t, IsReplace(obj))
	assert.False(t, IsReplace(nil))

	obj.SetAnnotations(map[string]string{ReplaceAnnotation: "true"})
	assert.True(t, IsReplace(obj))

	obj.SetAnnotations(map[string]string{ReplaceAnnotation: "yes"})
	assert.False(t, IsReplace(obj), "only the literal true opts in")
}

func TestLabelAndIsManaged(t *testing.T) {
	obj := newObj("v1", "ConfigMap", "web", "settings")
	assert.False(t, IsManaged(obj, "shop"))

	Label(obj, "shop")

	assert.True(t, IsManaged(obj, "shop"))
	assert.False(t, IsManaged(obj, "other-app"))
	assert.Equal(t, ManagedByValue, obj.GetLabels()[ManagedByLabel])
}

func TestLabelPreservesExistingLabels(t *testing.T) {
	obj := newObj("v1", "ConfigMap", "web", "settings")
	obj.SetLabels(map[string]string{"team": "platform"})

	Label(obj, "shop")

	assert.Equal(t, "platform", obj.GetLabels()["team"])
}
