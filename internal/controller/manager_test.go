package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/config"
)

func managerForTest(t *testing.T, apps ...config.Application) *Manager {
	t.Helper()

	engine := NewEngine(&fakeCluster{}, &fakeApplier{})
	m, err := NewManager(ManagerConfig{
		SyncInterval:   time.Hour,
		WorkerCount:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		CacheDir:       t.TempDir(),
	}, engine, apps, nil)
	require.NoError(t, err)
	return m
}

func TestManager_InitialPassRunsForEveryApp(t *testing.T) {
	dir := manifestDir(t, map[string]string{"cm.yaml": configMapManifest})

	app := automatedApp("web")
	app.Source.Path = dir

	m := managerForTest(t, app)
	require.NoError(t, m.Start(context.Background()))
	defer func() { require.NoError(t, m.Stop()) }()

	assert.Eventually(t, func() bool {
		status, ok := m.Status("web")
		return ok && status.State == SyncStateSynced
	}, 5*time.Second, 20*time.Millisecond)

	status, _ := m.Status("web")
	assert.NotEmpty(t, status.Revision)
	assert.NotNil(t, status.LastSyncedAt)
}

func TestManager_TriggerSyncUnknownApp(t *testing.T) {
	m := managerForTest(t)
	assert.Error(t, m.TriggerSync("nope"))
}

func TestManager_TriggerSyncRunsPass(t *testing.T) {
	dir := manifestDir(t, map[string]string{"cm.yaml": configMapManifest})

	// Not automated: only the manual trigger may write.
	app := automatedApp("web")
	app.Source.Path = dir
	app.SyncPolicy = config.SyncPolicySpec{}

	m := managerForTest(t, app)
	require.NoError(t, m.Start(context.Background()))
	defer func() { require.NoError(t, m.Stop()) }()

	// The initial interval pass reports drift without writing.
	assert.Eventually(t, func() bool {
		status, ok := m.Status("web")
		return ok && status.State == SyncStateOutOfSync
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, m.TriggerSync("web"))

	assert.Eventually(t, func() bool {
		status, _ := m.Status("web")
		return status.State == SyncStateSynced
	}, 5*time.Second, 20*time.Millisecond)
}

func TestManager_StatusesSorted(t *testing.T) {
	dir := manifestDir(t, map[string]string{"cm.yaml": configMapManifest})

	appB := automatedApp("b-app")
	appB.Source.Path = dir
	appA := automatedApp("a-app")
	appA.Source.Path = dir

	m := managerForTest(t, appB, appA)

	statuses := m.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a-app", statuses[0].Application)
	assert.Equal(t, "b-app", statuses[1].Application)
	assert.Equal(t, SyncStateUnknown, statuses[0].State)
}

func TestManager_StatusSnapshotIsolatedFromLaterPasses(t *testing.T) {
	m := managerForTest(t)
	req := syncRequest{Application: "web", Reason: TriggerInterval, Attempt: 1}

	m.recordResult(req, PassResult{
		Application:  "web",
		RenderErrors: []error{errors.New("first-pass error")},
	})

	snapshot, ok := m.Status("web")
	require.True(t, ok)
	require.Equal(t, []string{"first-pass error"}, snapshot.RenderErrors)

	m.recordResult(req, PassResult{
		Application:  "web",
		RenderErrors: []error{errors.New("second-pass error")},
	})

	// The copy handed out earlier must not see the newer pass.
	assert.Equal(t, []string{"first-pass error"}, snapshot.RenderErrors)

	current, _ := m.Status("web")
	assert.Equal(t, []string{"second-pass error"}, current.RenderErrors)
}

func TestManager_UnknownSourceTypeFailsConstruction(t *testing.T) {
	engine := NewEngine(&fakeCluster{}, &fakeApplier{})
	_, err := NewManager(ManagerConfig{}, engine, []config.Application{
		{Name: "broken", Source: config.SourceSpec{Type: "svn"}},
	}, nil)
	assert.Error(t, err)
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := managerForTest(t)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	assert.False(t, m.IsRunning())
}
