package cluster

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"steward/internal/config"
	"steward/internal/resource"
)

// Client is steward's connection to the live cluster. It wraps a
// controller-runtime client working on unstructured objects, plus the REST
// mapper needed for scope decisions.
//
// The read path (Snapshot) and the write path (Create/Update/Delete) share
// no mutable state; every reconciliation pass takes a fresh snapshot.
type Client struct {
	kube       client.Client
	restConfig *rest.Config
}

// NewClient connects to the cluster selected by the Kubernetes
// configuration: an explicit kubeconfig path, or in-cluster config, or the
// default kubeconfig chain, in that order.
func NewClient(cfg config.KubernetesConfig) (*Client, error) {
	restConfig, err := loadRESTConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.QPS > 0 {
		restConfig.QPS = cfg.QPS
	}
	if cfg.Burst > 0 {
		restConfig.Burst = cfg.Burst
	}

	kube, err := client.New(restConfig, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("creating cluster client: %w", err)
	}

	return &Client{kube: kube, restConfig: restConfig}, nil
}

// loadRESTConfig resolves the REST configuration.
func loadRESTConfig(cfg config.KubernetesConfig) (*rest.Config, error) {
	if cfg.Kubeconfig != "" || cfg.Context != "" {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if cfg.Kubeconfig != "" {
			loadingRules.ExplicitPath = cfg.Kubeconfig
		}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.Context}
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
		return restConfig, nil
	}

	if restConfig, err := rest.InClusterConfig(); err == nil {
		return restConfig, nil
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(), &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("no usable cluster configuration: %w", err)
	}
	return restConfig, nil
}

// RESTConfig exposes the underlying REST configuration for components that
// build their own watch caches.
func (c *Client) RESTConfig() *rest.Config {
	return c.restConfig
}

// GetLive fetches the current live state of the resource identified by obj's
// GVK, namespace and name.
func (c *Client) GetLive(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	live := &unstructured.Unstructured{}
	live.SetGroupVersionKind(obj.GroupVersionKind())

	key := client.ObjectKey{Namespace: obj.GetNamespace(), Name: obj.GetName()}
	if err := c.kube.Get(ctx, key, live); err != nil {
		return nil, err
	}
	return live, nil
}

// Create creates the resource in the cluster.
func (c *Client) Create(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.kube.Create(ctx, obj)
}

// Update replaces the resource body. The caller is responsible for carrying
// the live resourceVersion so the server can detect write conflicts.
func (c *Client) Update(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.kube.Update(ctx, obj)
}

// Delete removes the resource from the cluster.
func (c *Client) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.kube.Delete(ctx, obj)
}

// IsNamespaced reports whether a group/kind is namespace-scoped.
func (c *Client) IsNamespaced(gk schema.GroupKind) (bool, error) {
	mapping, err := c.kube.RESTMapper().RESTMapping(gk)
	if err != nil {
		return false, err
	}
	return mapping.Scope.Name() == meta.RESTScopeNameNamespace, nil
}

// Scoper answers namespace-scope questions for group/kinds. It is the
// narrow slice of the REST mapper the defaulting logic needs.
type Scoper interface {
	IsNamespaced(gk schema.GroupKind) (bool, error)
}

// DefaultNamespaces sets the destination namespace on namespaced resources
// that do not name one themselves. Unknown kinds are left untouched; the
// apply step will surface the real error.
func DefaultNamespaces(scoper Scoper, objs []*unstructured.Unstructured, namespace string) {
	if namespace == "" {
		return
	}
	for _, obj := range objs {
		if obj.GetNamespace() != "" {
			continue
		}
		gk := resource.KeyFor(obj).GroupKind()
		namespaced, err := scoper.IsNamespaced(gk)
		if err != nil || !namespaced {
			continue
		}
		obj.SetNamespace(namespace)
	}
}
