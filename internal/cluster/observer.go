package cluster

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"steward/internal/resource"
	"steward/pkg/logging"
)

// builtinTrackedGVKs are listed on every snapshot in addition to the GVKs of
// the current desired set. This is what makes orphan detection work when a
// kind disappears from the manifests entirely: its labeled survivors still
// show up in the snapshot.
var builtinTrackedGVKs = []schema.GroupVersionKind{
	{Version: "v1", Kind: "ConfigMap"},
	{Version: "v1", Kind: "Secret"},
	{Version: "v1", Kind: "Service"},
	{Version: "v1", Kind: "ServiceAccount"},
	{Version: "v1", Kind: "PersistentVolumeClaim"},
	{Version: "v1", Kind: "Namespace"},
	{Group: "apps", Version: "v1", Kind: "Deployment"},
	{Group: "apps", Version: "v1", Kind: "StatefulSet"},
	{Group: "apps", Version: "v1", Kind: "DaemonSet"},
	{Group: "batch", Version: "v1", Kind: "Job"},
	{Group: "batch", Version: "v1", Kind: "CronJob"},
	{Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"},
	{Group: "networking.k8s.io", Version: "v1", Kind: "NetworkPolicy"},
	{Group: "autoscaling", Version: "v2", Kind: "HorizontalPodAutoscaler"},
	{Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "Role"},
	{Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "RoleBinding"},
	{Group: "policy", Version: "v1", Kind: "PodDisruptionBudget"},
}

// Snapshot reads the live state of all resources managed for one
// application. It lists every tracked GVK filtered by steward's tracking
// labels and returns the result keyed by identity.
//
// The snapshot is a point-in-time copy owned by the caller; the reconciler
// never writes through it.
func (c *Client) Snapshot(ctx context.Context, application string, desiredGVKs []schema.GroupVersionKind) (map[resource.Key]*unstructured.Unstructured, error) {
	snapshot := make(map[resource.Key]*unstructured.Unstructured)

	selector := client.MatchingLabels{
		resource.ManagedByLabel:   resource.ManagedByValue,
		resource.ApplicationLabel: application,
	}

	for _, gvk := range mergeGVKs(desiredGVKs, builtinTrackedGVKs) {
		list := &unstructured.UnstructuredList{}
		list.SetGroupVersionKind(gvk.GroupVersion().WithKind(gvk.Kind + "List"))

		if err := c.kube.List(ctx, list, selector); err != nil {
			// Kinds that are not served (CRD not installed, API group
			// absent on this cluster) are simply not tracked here.
			if meta.IsNoMatchError(err) || apierrors.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("listing %s: %w", gvk.Kind, err)
		}

		for i := range list.Items {
			item := &list.Items[i]
			snapshot[resource.KeyFor(item)] = item
		}
	}

	logging.Debug("ClusterObserver", "Snapshot for application %s: %d managed resource(s)", application, len(snapshot))
	return snapshot, nil
}

// mergeGVKs unions the two GVK sets, preserving the order of first
// appearance.
func mergeGVKs(a, b []schema.GroupVersionKind) []schema.GroupVersionKind {
	seen := make(map[schema.GroupVersionKind]bool, len(a)+len(b))
	out := make([]schema.GroupVersionKind, 0, len(a)+len(b))
	for _, gvk := range append(append([]schema.GroupVersionKind{}, a...), b...) {
		if seen[gvk] {
			continue
		}
		seen[gvk] = true
		out = append(out, gvk)
	}
	return out
}

// GVKsOf extracts the distinct GroupVersionKinds of a rendered desired set.
func GVKsOf(objs []*unstructured.Unstructured) []schema.GroupVersionKind {
	seen := make(map[schema.GroupVersionKind]bool)
	var out []schema.GroupVersionKind
	for _, obj := range objs {
		gvk := obj.GroupVersionKind()
		if !seen[gvk] {
			seen[gvk] = true
			out = append(out, gvk)
		}
	}
	return out
}
