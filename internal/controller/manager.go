package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"steward/internal/cluster"
	"steward/internal/config"
	"steward/internal/source"
	"steward/pkg/logging"
	"steward/pkg/metrics"
)

// ManagerConfig tunes the controller loop.
type ManagerConfig struct {
	// SyncInterval is the default periodic reconciliation interval,
	// overridable per application.
	SyncInterval time.Duration

	// WorkerCount is the number of concurrent reconciliation workers.
	// Per-application serialization is enforced by the queue regardless.
	WorkerCount int

	// MaxRetries bounds pass-level retries after whole-pass failures.
	MaxRetries int

	// InitialBackoff and MaxBackoff shape the retry delay curve.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// DebounceInterval coalesces bursts of filesystem change events.
	DebounceInterval time.Duration

	// CacheDir holds per-application git working copies.
	CacheDir string
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.SyncInterval == 0 {
		c.SyncInterval = 3 * time.Minute
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = 2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = time.Minute
	}
	if c.DebounceInterval == 0 {
		c.DebounceInterval = 500 * time.Millisecond
	}
	return c
}

// Manager is the control loop. It owns the per-application sources and
// watchers, the work queue, the worker pool, and the status table.
type Manager struct {
	mu sync.RWMutex

	config ManagerConfig
	engine *Engine

	apps    map[string]config.Application
	sources map[string]source.Source

	queue *delayedQueue

	// statuses is the externally visible state table, updated after every
	// pass and served by the status API.
	statuses map[string]*AppStatus

	watchers     []source.Watcher
	driftWatcher *cluster.DriftWatcher

	sourceEvents chan source.Event
	driftEvents  chan cluster.DriftEvent

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	running    bool
}

// NewManager assembles a controller for the given applications. Sources are
// constructed eagerly so misconfigured applications fail at startup, not at
// their first pass.
func NewManager(cfg ManagerConfig, engine *Engine, apps []config.Application, driftWatcher *cluster.DriftWatcher) (*Manager, error) {
	cfg = cfg.withDefaults()

	m := &Manager{
		config:       cfg,
		engine:       engine,
		apps:         make(map[string]config.Application, len(apps)),
		sources:      make(map[string]source.Source, len(apps)),
		queue:        newDelayedQueue(),
		statuses:     make(map[string]*AppStatus, len(apps)),
		driftWatcher: driftWatcher,
		sourceEvents: make(chan source.Event, 100),
		driftEvents:  make(chan cluster.DriftEvent, 100),
	}

	for _, app := range apps {
		src, err := source.New(app, cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", app.Name, err)
		}
		m.apps[app.Name] = app
		m.sources[app.Name] = src
		m.statuses[app.Name] = &AppStatus{
			Application: app.Name,
			State:       SyncStateUnknown,
		}
	}

	return m, nil
}

// Start launches the workers, watchers, and the initial pass for every
// application.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	if err := m.startWatchers(); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}

	m.wg.Add(1)
	go m.processEvents()

	for i := 0; i < m.config.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	// Every application gets an immediate first pass.
	for name := range m.apps {
		m.queue.Add(syncRequest{Application: name, Reason: TriggerInterval, Attempt: 1})
	}

	logging.Info("Controller", "Started with %d worker(s), %d application(s)", m.config.WorkerCount, len(m.apps))
	return nil
}

func (m *Manager) startWatchers() error {
	for name, app := range m.apps {
		if app.Source.Type != config.SourceTypeDirectory {
			continue
		}
		watcher := source.NewDirectoryWatcher(name, app.Source.Path, m.config.DebounceInterval)
		if err := watcher.Start(m.ctx, m.sourceEvents); err != nil {
			logging.Warn("Controller", "Source watch for %s unavailable, relying on the interval: %v", name, err)
			continue
		}
		m.watchers = append(m.watchers, watcher)
	}

	if m.driftWatcher != nil {
		if err := m.driftWatcher.Start(m.ctx, m.driftEvents); err != nil {
			logging.Warn("Controller", "Drift watch unavailable, relying on the interval: %v", err)
			m.driftWatcher = nil
		}
	}
	return nil
}

// processEvents converts watcher events into queue triggers.
func (m *Manager) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-m.sourceEvents:
			if !ok {
				return
			}
			m.trigger(event.Application, TriggerSource)

		case event, ok := <-m.driftEvents:
			if !ok {
				return
			}
			m.trigger(event.Application, TriggerDrift)
		}
	}
}

func (m *Manager) trigger(application string, reason TriggerReason) {
	m.mu.RLock()
	_, known := m.apps[application]
	m.mu.RUnlock()
	if !known {
		logging.Debug("Controller", "Ignoring %s trigger for unknown application %s", reason, application)
		return
	}

	metrics.TriggersTotal.WithLabelValues(string(reason)).Inc()
	m.queue.Add(syncRequest{Application: application, Reason: reason, Attempt: 1})
	metrics.QueueLength.Set(float64(m.queue.Len()))
}

// TriggerSync requests an immediate pass with manual write permission. Used
// by the webhook endpoint and the sync command against a running server.
func (m *Manager) TriggerSync(application string) error {
	m.mu.RLock()
	_, known := m.apps[application]
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("unknown application %q", application)
	}

	metrics.TriggersTotal.WithLabelValues(string(TriggerManual)).Inc()
	m.queue.Add(syncRequest{Application: application, Reason: TriggerManual, Attempt: 1})
	return nil
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()

	logging.Debug("Controller", "Worker %d started", id)

	for {
		req, ok := m.queue.Get(m.ctx)
		if !ok {
			logging.Debug("Controller", "Worker %d shutting down", id)
			return
		}

		metrics.QueueLength.Set(float64(m.queue.Len()))
		m.processRequest(req)
		m.queue.Done(req)
	}
}

func (m *Manager) processRequest(req syncRequest) {
	m.mu.RLock()
	app, ok := m.apps[req.Application]
	src := m.sources[req.Application]
	m.mu.RUnlock()

	if !ok {
		logging.Warn("Controller", "No such application: %s", req.Application)
		return
	}

	result := m.engine.Run(m.ctx, app, src, req.Reason)
	m.recordResult(req, result)

	if result.Err != nil && req.Attempt < m.config.MaxRetries {
		backoff := m.calculateBackoff(req.Attempt)
		req.Attempt++
		m.queue.AddAfter(req, backoff)
		logging.Debug("Controller", "Requeuing %s after %v (attempt %d)", req.Application, backoff, req.Attempt)
		return
	}

	// Schedule the next periodic pass. Retries above replace this timer;
	// the interval resumes once a pass completes.
	m.queue.AddAfter(syncRequest{
		Application: req.Application,
		Reason:      TriggerInterval,
		Attempt:     1,
	}, m.syncInterval(app))
}

func (m *Manager) syncInterval(app config.Application) time.Duration {
	if app.SyncPolicy.SyncInterval > 0 {
		return app.SyncPolicy.SyncInterval
	}
	return m.config.SyncInterval
}

// calculateBackoff computes exponential backoff for pass retries.
func (m *Manager) calculateBackoff(attempt int) time.Duration {
	backoff := m.config.InitialBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > m.config.MaxBackoff {
		backoff = m.config.MaxBackoff
	}
	return backoff
}

func (m *Manager) recordResult(req syncRequest, result PassResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[req.Application]
	if !ok {
		status = &AppStatus{Application: req.Application}
		m.statuses[req.Application] = status
	}

	status.State = result.State()
	status.Health = result.Health.Status
	status.Revision = result.Revision
	status.Orphans = result.Diff.Orphans
	status.Resources = result.Health.Resources
	status.LastAttempt = time.Now()

	// A fresh slice every pass: AppStatus copies handed out by Status may
	// still be serialized elsewhere and must not see later passes.
	status.RenderErrors = make([]string, 0, len(result.RenderErrors))
	for _, err := range result.RenderErrors {
		status.RenderErrors = append(status.RenderErrors, err.Error())
	}

	if result.Applied {
		status.Operations = result.Apply.Results
	}

	switch status.State {
	case SyncStateSynced:
		now := time.Now()
		status.LastSyncedAt = &now
		status.LastError = ""
		status.RetryCount = 0
	case SyncStateError:
		if result.Err != nil {
			status.LastError = result.Err.Error()
		} else {
			status.LastError = fmt.Sprintf("%d apply operation(s) failed", result.Apply.Failed)
		}
		status.RetryCount++
	case SyncStateOutOfSync:
		status.LastError = ""
	}
}

// Status returns the status of one application.
func (m *Manager) Status(application string) (AppStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[application]
	if !ok {
		return AppStatus{}, false
	}
	return *status, true
}

// Statuses returns all application statuses sorted by name.
func (m *Manager) Statuses() []AppStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]AppStatus, 0, len(m.statuses))
	for _, status := range m.statuses {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Application < statuses[j].Application
	})
	return statuses
}

// IsRunning reports whether the control loop is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// QueueLength returns the number of pending sync requests.
func (m *Manager) QueueLength() int {
	return m.queue.Len()
}

// Stop shuts the loop down: watchers first so no new triggers arrive, then
// the queue, then the workers. In-flight passes run to completion or until
// the context deadline.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	logging.Info("Controller", "Stopping controller...")

	for _, watcher := range m.watchers {
		if err := watcher.Stop(); err != nil {
			logging.Error("Controller", err, "Error stopping source watcher")
		}
	}
	if m.driftWatcher != nil {
		if err := m.driftWatcher.Stop(); err != nil {
			logging.Error("Controller", err, "Error stopping drift watcher")
		}
	}

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.queue.Shutdown()
	m.wg.Wait()

	logging.Info("Controller", "Controller stopped")
	return nil
}
