package resource

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Key identifies one Kubernetes resource independently of its body.
// The API version is deliberately absent: two manifests addressing the same
// group/kind/namespace/name are the same resource even across version bumps.
type Key struct {
	Group     string
	Kind      string
	Namespace string
	Name      string
}

// KeyFor derives the identity key of an object.
func KeyFor(obj *unstructured.Unstructured) Key {
	gvk := obj.GroupVersionKind()
	return Key{
		Group:     gvk.Group,
		Kind:      gvk.Kind,
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}

// String renders the key in the form "group/Kind namespace/name" with the
// group omitted for core resources and the namespace omitted for
// cluster-scoped ones.
func (k Key) String() string {
	kind := k.Kind
	if k.Group != "" {
		kind = k.Group + "/" + kind
	}
	if k.Namespace != "" {
		return fmt.Sprintf("%s %s/%s", kind, k.Namespace, k.Name)
	}
	return fmt.Sprintf("%s %s", kind, k.Name)
}

// GroupKind returns the schema group/kind of the key.
func (k Key) GroupKind() schema.GroupKind {
	return schema.GroupKind{Group: k.Group, Kind: k.Kind}
}
