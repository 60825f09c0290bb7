package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"steward/internal/cluster"
	"steward/internal/config"
	"steward/internal/diff"
	"steward/internal/health"
	"steward/internal/render"
	"steward/internal/resource"
	"steward/internal/source"
	"steward/internal/syncer"
	"steward/pkg/logging"
	"steward/pkg/metrics"
)

// ClusterAccess is the read surface a pass needs from the cluster.
type ClusterAccess interface {
	cluster.Scoper
	Snapshot(ctx context.Context, application string, desiredGVKs []schema.GroupVersionKind) (map[resource.Key]*unstructured.Unstructured, error)
}

// Applier executes planned sync waves.
type Applier interface {
	Apply(ctx context.Context, application string, waves []syncer.Wave) syncer.Result
}

// PassResult is everything one reconciliation pass learned and did.
type PassResult struct {
	ID          string
	Application string
	Reason      TriggerReason
	Revision    string

	RenderErrors []error
	Diff         diff.Result

	// Applied reports whether the pass wrote to the cluster. False for
	// passes that only observed, either because nothing drifted or because
	// the policy withheld the write.
	Applied bool
	Apply   syncer.Result

	// WithheldUpdates are drifted resources left in place: the revision did
	// not change and self-heal is off, so automated sync has nothing new to
	// apply and manual edits stay.
	WithheldUpdates []resource.Key

	Health health.ApplicationHealth

	// Err is a whole-pass failure: fetch, render, or snapshot. Per-resource
	// failures live in RenderErrors and Apply instead.
	Err error
}

// State derives the sync state verdict from the pass outcome.
func (r PassResult) State() SyncState {
	switch {
	case r.Err != nil:
		return SyncStateError
	case r.Applied && r.Apply.Failed > 0:
		return SyncStateError
	case len(r.WithheldUpdates) > 0:
		return SyncStateOutOfSync
	case !r.Applied && !r.Diff.Empty():
		return SyncStateOutOfSync
	default:
		return SyncStateSynced
	}
}

// Engine runs reconciliation passes. It is shared between the long-running
// controller and the one-shot CLI commands; the controller adds queueing and
// scheduling on top.
type Engine struct {
	cluster ClusterAccess
	applier Applier

	mu sync.Mutex

	// lastSynced remembers, per application, the revision the last clean
	// pass converged on. Automated sync without self-heal only writes when
	// the revision moved past this.
	lastSynced map[string]string
}

// NewEngine creates a pass engine over the given cluster surfaces.
func NewEngine(clusterAccess ClusterAccess, applier Applier) *Engine {
	return &Engine{
		cluster:    clusterAccess,
		applier:    applier,
		lastSynced: make(map[string]string),
	}
}

// syncedAt reports whether revision is the one the application last
// converged on.
func (e *Engine) syncedAt(application, revision string) bool {
	if revision == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSynced[application] == revision
}

func (e *Engine) recordSynced(application, revision string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSynced[application] = revision
}

// shouldApply decides whether this trigger may write, given the
// application's sync policy.
func shouldApply(app config.Application, reason TriggerReason) bool {
	switch reason {
	case TriggerManual:
		return true
	case TriggerDrift:
		return app.SyncPolicy.SelfHealEnabled()
	default:
		return app.SyncPolicy.IsAutomated()
	}
}

// Run executes one reconciliation pass: fetch, render, observe, diff, and
// (policy permitting) apply, then assess health. Cancel mid-pass and
// everything already applied stays applied; there is no rollback.
func (e *Engine) Run(ctx context.Context, app config.Application, src source.Source, reason TriggerReason) PassResult {
	return e.run(ctx, app, src, reason, shouldApply(app, reason))
}

// Preview runs the observe half of a pass: fetch, render, diff, and health,
// with writing unconditionally disabled. Used by the diff command.
func (e *Engine) Preview(ctx context.Context, app config.Application, src source.Source) PassResult {
	return e.run(ctx, app, src, TriggerManual, false)
}

func (e *Engine) run(ctx context.Context, app config.Application, src source.Source, reason TriggerReason, allowWrite bool) PassResult {
	started := time.Now()
	result := PassResult{
		ID:          uuid.NewString(),
		Application: app.Name,
		Reason:      reason,
	}

	logging.Debug("Controller", "Pass %s for %s (reason: %s)", result.ID, app.Name, reason)

	tree, err := src.Fetch(ctx)
	if err != nil {
		result.Err = fmt.Errorf("fetching source: %w", err)
		return e.finish(app, result, started)
	}
	result.Revision = tree.Revision

	rendered, err := render.Render(render.Input{
		Dir:         tree.Dir,
		Revision:    tree.Revision,
		Application: app.Name,
		Kustomize:   app.Source.Kustomize,
		Parameters:  app.Source.Parameters,
	})
	if err != nil {
		result.Err = fmt.Errorf("rendering manifests: %w", err)
		return e.finish(app, result, started)
	}
	result.RenderErrors = rendered.Errors
	if len(rendered.Errors) > 0 {
		metrics.RenderErrorsTotal.WithLabelValues(app.Name).Add(float64(len(rendered.Errors)))
	}

	cluster.DefaultNamespaces(e.cluster, rendered.Resources, app.Destination.Namespace)

	live, err := e.cluster.Snapshot(ctx, app.Name, cluster.GVKsOf(rendered.Resources))
	if err != nil {
		result.Err = fmt.Errorf("observing cluster state: %w", err)
		return e.finish(app, result, started)
	}

	result.Diff, err = diff.Calculate(rendered.Resources, live, diff.Options{Prune: app.SyncPolicy.PruneEnabled()})
	if err != nil {
		result.Err = fmt.Errorf("computing diff: %w", err)
		return e.finish(app, result, started)
	}

	if allowWrite {
		ops := result.Diff.Operations
		if reason != TriggerManual && !app.SyncPolicy.SelfHealEnabled() && e.syncedAt(app.Name, result.Revision) {
			// The revision did not move, so every Update corrects a manual
			// edit. Without self-heal those stay in place, reported as
			// out of sync. Creates still land.
			ops, result.WithheldUpdates = withholdUpdates(ops)
			if len(result.WithheldUpdates) > 0 {
				logging.Debug("Controller", "Leaving %d drifted resource(s) of %s in place (selfHeal disabled)",
					len(result.WithheldUpdates), app.Name)
			}
		}

		if len(ops) > 0 {
			result.Applied = true
			result.Apply = e.applier.Apply(ctx, app.Name, syncer.Plan(ops))
			recordApplyMetrics(result.Apply)

			// Re-observe so health reflects the post-apply world.
			if fresh, err := e.cluster.Snapshot(ctx, app.Name, cluster.GVKsOf(rendered.Resources)); err == nil {
				live = fresh
			}
		}
	}

	result.Health = health.Aggregate(rendered.Resources, live)
	return e.finish(app, result, started)
}

// withholdUpdates strips Update operations from a patch set, returning the
// remainder and the keys held back.
func withholdUpdates(ops []diff.Operation) ([]diff.Operation, []resource.Key) {
	kept := make([]diff.Operation, 0, len(ops))
	var withheld []resource.Key
	for _, op := range ops {
		if op.Type == diff.OperationUpdate {
			withheld = append(withheld, op.Key)
			continue
		}
		kept = append(kept, op)
	}
	return kept, withheld
}

func (e *Engine) finish(app config.Application, result PassResult, started time.Time) PassResult {
	elapsed := time.Since(started)
	state := result.State()

	if state == SyncStateSynced && result.Revision != "" {
		e.recordSynced(app.Name, result.Revision)
	}

	metrics.SyncPassesTotal.WithLabelValues(app.Name, string(state)).Inc()
	metrics.SyncPassDuration.WithLabelValues(app.Name).Observe(elapsed.Seconds())
	metrics.ApplicationHealth.WithLabelValues(app.Name).Set(metrics.HealthValue(string(result.Health.Status)))
	metrics.ApplicationOrphans.WithLabelValues(app.Name).Set(float64(len(result.Diff.Orphans)))

	if result.Err != nil {
		logging.Error("Controller", result.Err, "Pass %s for %s failed after %v", result.ID, app.Name, elapsed)
	} else {
		logging.Info("Controller", "Pass %s for %s: %s at %s (%d op(s), applied=%t) in %v",
			result.ID, app.Name, state, result.Revision, len(result.Diff.Operations), result.Applied, elapsed)
	}
	return result
}

func recordApplyMetrics(apply syncer.Result) {
	for _, op := range apply.Results {
		outcome := "success"
		if !op.Succeeded() {
			outcome = "failure"
		}
		metrics.SyncOperationsTotal.WithLabelValues(string(op.Type), outcome).Inc()
	}
}
