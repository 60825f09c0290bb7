package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/controller-runtime/pkg/cache"

	"steward/internal/resource"
	"steward/pkg/logging"
)

// DriftEvent signals that a managed live resource changed outside a sync
// pass. The controller uses it to wake up self-healing applications early
// instead of waiting for the next interval tick.
type DriftEvent struct {
	// Application is the owning application, read from the tracking label.
	Application string

	// Key identifies the changed resource.
	Key resource.Key

	// Timestamp is when the change was observed.
	Timestamp time.Time
}

// DriftWatcher watches managed resources via informers and reports live
// changes. It is filtered server-side by the managed-by label, so informer
// caches stay proportional to what steward manages, not to the cluster.
type DriftWatcher struct {
	mu sync.RWMutex

	client *Client
	gvks   []schema.GroupVersionKind

	cache      cache.Cache
	cancelFunc context.CancelFunc
	running    bool

	registrations []toolscache.ResourceEventHandlerRegistration
}

// NewDriftWatcher creates a watcher for the given GVKs.
func NewDriftWatcher(c *Client, gvks []schema.GroupVersionKind) *DriftWatcher {
	return &DriftWatcher{
		client: c,
		gvks:   mergeGVKs(gvks, builtinTrackedGVKs),
	}
}

// Start builds the informer cache and begins delivering drift events.
func (w *DriftWatcher) Start(ctx context.Context, events chan<- DriftEvent) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	var watchCtx context.Context
	watchCtx, w.cancelFunc = context.WithCancel(ctx)
	w.running = true
	w.mu.Unlock()

	managedSelector := labels.SelectorFromSet(labels.Set{
		resource.ManagedByLabel: resource.ManagedByValue,
	})

	c, err := cache.New(w.client.RESTConfig(), cache.Options{
		DefaultLabelSelector: managedSelector,
	})
	if err != nil {
		w.markStopped()
		return fmt.Errorf("creating watch cache: %w", err)
	}

	w.mu.Lock()
	w.cache = c
	w.mu.Unlock()

	for _, gvk := range w.gvks {
		if err := w.registerInformer(watchCtx, gvk, events); err != nil {
			logging.Warn("DriftWatcher", "Not watching %s: %v", gvk.Kind, err)
		}
	}

	go func() {
		if err := c.Start(watchCtx); err != nil {
			logging.Error("DriftWatcher", err, "Watch cache stopped")
		}
	}()

	if !c.WaitForCacheSync(watchCtx) {
		w.markStopped()
		return fmt.Errorf("watch cache failed to sync")
	}

	logging.Info("DriftWatcher", "Watching %d kind(s) for live drift", len(w.gvks))
	return nil
}

func (w *DriftWatcher) registerInformer(ctx context.Context, gvk schema.GroupVersionKind, events chan<- DriftEvent) error {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)

	informer, err := w.cache.GetInformer(ctx, obj, cache.BlockUntilSynced(false))
	if err != nil {
		return err
	}

	registration, err := informer.AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		UpdateFunc: func(_, newObj interface{}) {
			w.emit(newObj, events)
		},
		DeleteFunc: func(obj interface{}) {
			w.emit(obj, events)
		},
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.registrations = append(w.registrations, registration)
	w.mu.Unlock()
	return nil
}

// emit converts an informer object into a drift event. Add events are
// deliberately not handled: creates come from steward itself during a pass.
func (w *DriftWatcher) emit(raw interface{}, events chan<- DriftEvent) {
	obj, ok := rawToUnstructured(raw)
	if !ok {
		return
	}

	application := obj.GetLabels()[resource.ApplicationLabel]
	if application == "" {
		return
	}

	event := DriftEvent{
		Application: application,
		Key:         resource.KeyFor(obj),
		Timestamp:   time.Now(),
	}

	select {
	case events <- event:
	default:
		// The controller coalesces triggers per application; dropping an
		// event while one is already queued loses nothing.
	}
}

func rawToUnstructured(raw interface{}) (*unstructured.Unstructured, bool) {
	switch v := raw.(type) {
	case *unstructured.Unstructured:
		return v, true
	case toolscache.DeletedFinalStateUnknown:
		obj, ok := v.Obj.(*unstructured.Unstructured)
		return obj, ok
	default:
		return nil, false
	}
}

// Stop tears down the informers and stops event delivery.
func (w *DriftWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	// Informers and handler registrations shut down with the cache context.
	w.registrations = nil

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	return nil
}

func (w *DriftWatcher) markStopped() {
	w.mu.Lock()
	w.running = false
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()
}
