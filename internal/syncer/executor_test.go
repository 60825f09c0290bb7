package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"steward/internal/diff"
	"steward/internal/resource"
)

// fakeKube is an in-memory cluster keyed by resource identity. Individual
// calls can be made to fail a fixed number of times to exercise the retry
// policy.
type fakeKube struct {
	mu      sync.Mutex
	objects map[resource.Key]*unstructured.Unstructured

	failures map[resource.Key][]error
	calls    map[string]int
}

func newFakeKube(objs ...*unstructured.Unstructured) *fakeKube {
	f := &fakeKube{
		objects:  make(map[resource.Key]*unstructured.Unstructured),
		failures: make(map[resource.Key][]error),
		calls:    make(map[string]int),
	}
	for _, obj := range objs {
		f.objects[resource.KeyFor(obj)] = obj.DeepCopy()
	}
	return f
}

// failNext queues errors returned by the next write calls for the key.
func (f *fakeKube) failNext(key resource.Key, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeKube) nextFailure(key resource.Key) error {
	queued := f.failures[key]
	if len(queued) == 0 {
		return nil
	}
	f.failures[key] = queued[1:]
	return queued[0]
}

func (f *fakeKube) GetLive(_ context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++

	live, ok := f.objects[resource.KeyFor(obj)]
	if !ok {
		return nil, notFound(obj)
	}
	return live.DeepCopy(), nil
}

func (f *fakeKube) Create(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++

	key := resource.KeyFor(obj)
	if err := f.nextFailure(key); err != nil {
		return err
	}
	if _, exists := f.objects[key]; exists {
		return apierrors.NewAlreadyExists(groupResource(obj), obj.GetName())
	}
	stored := obj.DeepCopy()
	stored.SetResourceVersion("1")
	f.objects[key] = stored
	return nil
}

func (f *fakeKube) Update(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++

	key := resource.KeyFor(obj)
	if err := f.nextFailure(key); err != nil {
		return err
	}
	live, exists := f.objects[key]
	if !exists {
		return notFound(obj)
	}
	if obj.GetResourceVersion() != live.GetResourceVersion() {
		return apierrors.NewConflict(groupResource(obj), obj.GetName(), nil)
	}
	f.objects[key] = obj.DeepCopy()
	return nil
}

func (f *fakeKube) Delete(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++

	key := resource.KeyFor(obj)
	if err := f.nextFailure(key); err != nil {
		return err
	}
	if _, exists := f.objects[key]; !exists {
		return notFound(obj)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeKube) has(key resource.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func notFound(obj *unstructured.Unstructured) error {
	return apierrors.NewNotFound(groupResource(obj), obj.GetName())
}

func groupResource(obj *unstructured.Unstructured) schema.GroupResource {
	gvk := obj.GroupVersionKind()
	return schema.GroupResource{Group: gvk.Group, Resource: gvk.Kind}
}

func fastOptions() Options {
	return Options{
		MaxRetries:       3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		OperationTimeout: 5 * time.Second,
		Parallelism:      2,
	}
}

func updateOp(desired, live *unstructured.Unstructured) diff.Operation {
	return diff.Operation{Type: diff.OperationUpdate, Key: resource.KeyFor(desired), Desired: desired, Live: live}
}

func TestExecutor_CreateUpdatePrune(t *testing.T) {
	existing := testObj("v1", "ConfigMap", "prod", "settings")
	existing.SetResourceVersion("7")
	orphan := testObj("v1", "Secret", "prod", "stale")

	kube := newFakeKube(existing, orphan)
	executor := NewExecutor(kube, fastOptions())

	newService := testObj("v1", "Service", "prod", "web")
	updatedCM := testObj("v1", "ConfigMap", "prod", "settings")
	require.NoError(t, unstructured.SetNestedField(updatedCM.Object, "v2", "data", "rev"))

	waves := Plan([]diff.Operation{
		createOp(newService),
		updateOp(updatedCM, existing),
		pruneOp(orphan),
	})

	result := executor.Apply(context.Background(), "web", waves)
	assert.Zero(t, result.Failed)
	assert.Len(t, result.Results, 3)

	assert.True(t, kube.has(resource.KeyFor(newService)))
	assert.False(t, kube.has(resource.KeyFor(orphan)))

	live, err := kube.GetLive(context.Background(), updatedCM)
	require.NoError(t, err)
	rev, _, _ := unstructured.NestedString(live.Object, "data", "rev")
	assert.Equal(t, "v2", rev)
}

func TestExecutor_RetriesConflict(t *testing.T) {
	existing := testObj("v1", "ConfigMap", "prod", "settings")
	existing.SetResourceVersion("7")

	kube := newFakeKube(existing)
	key := resource.KeyFor(existing)
	kube.failNext(key, apierrors.NewConflict(schema.GroupResource{Resource: "ConfigMap"}, "settings", nil))

	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(context.Background(), "web", Plan([]diff.Operation{
		updateOp(existing.DeepCopy(), existing),
	}))

	assert.Zero(t, result.Failed)
	assert.GreaterOrEqual(t, kube.calls["update"], 2)
}

func TestExecutor_PermanentErrorNotRetried(t *testing.T) {
	kube := newFakeKube()
	obj := testObj("v1", "ConfigMap", "prod", "bad")
	key := resource.KeyFor(obj)
	kube.failNext(key,
		apierrors.NewBadRequest("immutable field"),
		apierrors.NewBadRequest("immutable field"),
	)

	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(context.Background(), "web", Plan([]diff.Operation{createOp(obj)}))

	require.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Results[0].Error, "immutable field")
	assert.Equal(t, 1, kube.calls["create"])
}

func TestExecutor_FailureIsolation(t *testing.T) {
	kube := newFakeKube()
	bad := testObj("v1", "ConfigMap", "prod", "bad")
	good := testObj("v1", "ConfigMap", "prod", "good")
	kube.failNext(resource.KeyFor(bad), apierrors.NewBadRequest("rejected"))

	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(context.Background(), "web", Plan([]diff.Operation{
		createOp(bad),
		createOp(good),
	}))

	assert.Equal(t, 1, result.Failed)
	assert.True(t, kube.has(resource.KeyFor(good)))
}

func TestExecutor_ReplaceAnnotationDeletesAndRecreates(t *testing.T) {
	existing := testObj("batch/v1", "Job", "prod", "migrate")
	existing.SetResourceVersion("3")

	kube := newFakeKube(existing)

	desired := annotate(testObj("batch/v1", "Job", "prod", "migrate"), resource.ReplaceAnnotation, "true")
	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(context.Background(), "web", Plan([]diff.Operation{
		updateOp(desired, existing),
	}))

	assert.Zero(t, result.Failed)
	assert.Equal(t, 1, kube.calls["delete"])
	assert.Equal(t, 1, kube.calls["create"])
}

func TestExecutor_PruneAlreadyGoneSucceeds(t *testing.T) {
	kube := newFakeKube()
	ghost := testObj("v1", "Secret", "prod", "gone")

	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(context.Background(), "web", Plan([]diff.Operation{pruneOp(ghost)}))

	assert.Zero(t, result.Failed)
}

func TestExecutor_CancelStopsBetweenWaves(t *testing.T) {
	kube := newFakeKube()
	namespace := testObj("v1", "Namespace", "", "prod")
	deployment := testObj("apps/v1", "Deployment", "prod", "web")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(kube, fastOptions())
	result := executor.Apply(ctx, "web", Plan([]diff.Operation{
		createOp(namespace),
		createOp(deployment),
	}))

	// Nothing ran and nothing was rolled back.
	assert.Empty(t, result.Results)
	assert.Zero(t, kube.calls["create"])
}

func TestClassify(t *testing.T) {
	key := resource.Key{Kind: "ConfigMap", Namespace: "prod", Name: "x"}

	conflict := classify(key, apierrors.NewConflict(schema.GroupResource{Resource: "ConfigMap"}, "x", nil))
	assert.True(t, IsRetryable(conflict))

	transient := classify(key, apierrors.NewServiceUnavailable("overloaded"))
	assert.True(t, IsRetryable(transient))

	permanent := classify(key, apierrors.NewBadRequest("nope"))
	assert.False(t, IsRetryable(permanent))

	assert.NoError(t, classify(key, nil))
	assert.False(t, IsRetryable(context.Canceled))
}
