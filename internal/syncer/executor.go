package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"steward/internal/diff"
	"steward/internal/resource"
	"steward/pkg/logging"
)

// KubeClient is the write surface the executor needs from the cluster
// client.
type KubeClient interface {
	GetLive(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Create(ctx context.Context, obj *unstructured.Unstructured) error
	Update(ctx context.Context, obj *unstructured.Unstructured) error
	Delete(ctx context.Context, obj *unstructured.Unstructured) error
}

// Options tune the executor's retry and concurrency behavior.
type Options struct {
	// MaxRetries bounds the attempts per operation, first try included.
	MaxRetries int

	// InitialBackoff is the delay before the first retry; it doubles per
	// attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// OperationTimeout bounds each individual API operation including its
	// retries.
	OperationTimeout time.Duration

	// Parallelism caps concurrent operations inside one wave.
	Parallelism int
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = time.Minute
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = 30 * time.Second
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 4
	}
	return o
}

// OperationResult records the fate of one operation.
type OperationResult struct {
	Type  diff.OperationType `json:"type"`
	Key   resource.Key       `json:"key"`
	Error string             `json:"error,omitempty"`
}

// Succeeded reports whether the operation landed.
func (r OperationResult) Succeeded() bool { return r.Error == "" }

// Result is the outcome of one full sync pass.
type Result struct {
	Results []OperationResult `json:"results"`
	Failed  int               `json:"failed"`
}

// Executor applies planned waves to the cluster.
type Executor struct {
	client KubeClient
	opts   Options
}

// NewExecutor creates an executor over the given cluster write surface.
func NewExecutor(client KubeClient, opts Options) *Executor {
	return &Executor{client: client, opts: opts.withDefaults()}
}

// Apply runs the waves in order. Waves are strictly sequential; operations
// inside a wave run in parallel up to the configured limit.
//
// Failures are isolated per resource: a failed operation is recorded and the
// pass moves on, so one bad manifest cannot hold the rest of the application
// hostage. Cancellation stops the pass between operations and leaves
// everything already applied in place.
func (e *Executor) Apply(ctx context.Context, application string, waves []Wave) Result {
	var mu sync.Mutex
	var result Result

	record := func(r OperationResult) {
		mu.Lock()
		defer mu.Unlock()
		result.Results = append(result.Results, r)
		if !r.Succeeded() {
			result.Failed++
		}
	}

	for _, wave := range waves {
		if ctx.Err() != nil {
			logging.Info("Syncer", "Sync pass for %s canceled after %d operation(s)", application, len(result.Results))
			return result
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(e.opts.Parallelism)

		for _, op := range wave.Operations {
			group.Go(func() error {
				record(e.applyOne(groupCtx, op))
				// Errors are carried in the result, never through the
				// group; a failure must not cancel wave siblings.
				return nil
			})
		}
		_ = group.Wait()
	}

	logging.Info("Syncer", "Sync pass for %s: %d operation(s), %d failed", application, len(result.Results), result.Failed)
	return result
}

func (e *Executor) applyOne(ctx context.Context, op diff.Operation) OperationResult {
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	err := retry.Do(
		func() error { return e.execute(opCtx, op) },
		retry.Context(opCtx),
		retry.Attempts(uint(e.opts.MaxRetries)),
		retry.Delay(e.opts.InitialBackoff),
		retry.MaxDelay(e.opts.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	)

	result := OperationResult{Type: op.Type, Key: op.Key}
	if err != nil {
		result.Error = err.Error()
		logging.Error("Syncer", err, "%s %s failed", op.Type, op.Key)
	} else {
		logging.Debug("Syncer", "%s %s succeeded", op.Type, op.Key)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, op diff.Operation) error {
	switch op.Type {
	case diff.OperationCreate:
		return e.create(ctx, op)
	case diff.OperationUpdate:
		return e.update(ctx, op)
	case diff.OperationPrune:
		return e.prune(ctx, op)
	default:
		return &PermanentError{Key: op.Key, Err: fmt.Errorf("unknown operation type %q", op.Type)}
	}
}

func (e *Executor) create(ctx context.Context, op diff.Operation) error {
	obj := op.Desired.DeepCopy()
	err := e.client.Create(ctx, obj)
	if apierrors.IsAlreadyExists(err) {
		// Raced with someone else creating it; converge through the
		// update path instead.
		return e.update(ctx, op)
	}
	return classify(op.Key, err)
}

// update replaces the live body with the desired one, carrying the live
// resourceVersion so the server can reject concurrent writers. Resources
// annotated for replacement are deleted and recreated instead, for the
// fields an in-place update cannot change.
func (e *Executor) update(ctx context.Context, op diff.Operation) error {
	if resource.IsReplace(op.Desired) {
		return e.replace(ctx, op)
	}

	live, err := e.client.GetLive(ctx, op.Desired)
	if err != nil {
		if apierrors.IsNotFound(err) {
			obj := op.Desired.DeepCopy()
			return classify(op.Key, e.client.Create(ctx, obj))
		}
		return classify(op.Key, err)
	}

	obj := op.Desired.DeepCopy()
	obj.SetResourceVersion(live.GetResourceVersion())
	return classify(op.Key, e.client.Update(ctx, obj))
}

func (e *Executor) replace(ctx context.Context, op diff.Operation) error {
	if err := e.client.Delete(ctx, op.Desired); err != nil && !apierrors.IsNotFound(err) {
		return classify(op.Key, err)
	}
	obj := op.Desired.DeepCopy()
	return classify(op.Key, e.client.Create(ctx, obj))
}

func (e *Executor) prune(ctx context.Context, op diff.Operation) error {
	err := e.client.Delete(ctx, op.Live)
	if apierrors.IsNotFound(err) {
		// Already gone is the desired end state.
		return nil
	}
	return classify(op.Key, err)
}
