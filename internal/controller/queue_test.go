package controller

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDefault()
	os.Exit(m.Run())
}

func TestWorkQueue_Dedupes(t *testing.T) {
	q := newWorkQueue()

	q.Add(syncRequest{Application: "web", Reason: TriggerInterval})
	q.Add(syncRequest{Application: "web", Reason: TriggerSource})
	q.Add(syncRequest{Application: "db", Reason: TriggerInterval})

	assert.Equal(t, 2, q.Len())

	req, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "web", req.Application)
	// The later trigger replaced the queued one.
	assert.Equal(t, TriggerSource, req.Reason)
}

func TestWorkQueue_ManualReasonSurvivesCoalescing(t *testing.T) {
	q := newWorkQueue()

	q.Add(syncRequest{Application: "web", Reason: TriggerManual})
	q.Add(syncRequest{Application: "web", Reason: TriggerInterval})

	req, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, TriggerManual, req.Reason)
}

func TestWorkQueue_DirtyRequeueWhileProcessing(t *testing.T) {
	q := newWorkQueue()

	q.Add(syncRequest{Application: "web", Reason: TriggerInterval})
	req, ok := q.Get(context.Background())
	require.True(t, ok)

	// Triggers during the pass coalesce into exactly one follow-up.
	q.Add(syncRequest{Application: "web", Reason: TriggerSource})
	q.Add(syncRequest{Application: "web", Reason: TriggerDrift})
	assert.Equal(t, 0, q.Len())

	q.Done(req)
	assert.Equal(t, 1, q.Len())

	followup, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "web", followup.Application)
	assert.Equal(t, TriggerDrift, followup.Reason)
}

func TestWorkQueue_DoneWithoutDirtyLeavesQueueEmpty(t *testing.T) {
	q := newWorkQueue()

	q.Add(syncRequest{Application: "web"})
	req, _ := q.Get(context.Background())
	q.Done(req)

	assert.Equal(t, 0, q.Len())
}

func TestWorkQueue_GetUnblocksOnShutdown(t *testing.T) {
	q := newWorkQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(context.Background())
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Get did not unblock on shutdown")
	}
}

func TestWorkQueue_GetUnblocksOnContextCancel(t *testing.T) {
	q := newWorkQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Get did not unblock on context cancel")
	}
}

func TestWorkQueue_AddAfterShutdownIsIgnored(t *testing.T) {
	q := newWorkQueue()
	q.Shutdown()
	q.Add(syncRequest{Application: "web"})
	assert.Equal(t, 0, q.Len())
}

func TestDelayedQueue_AddAfter(t *testing.T) {
	q := newDelayedQueue()
	defer q.Shutdown()

	q.AddAfter(syncRequest{Application: "web"}, 30*time.Millisecond)
	assert.Equal(t, 0, q.Len())

	assert.Eventually(t, func() bool {
		return q.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDelayedQueue_LaterScheduleReplacesPending(t *testing.T) {
	q := newDelayedQueue()
	defer q.Shutdown()

	q.AddAfter(syncRequest{Application: "web", Reason: TriggerInterval}, time.Hour)
	q.AddAfter(syncRequest{Application: "web", Reason: TriggerManual}, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return q.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	req, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, TriggerManual, req.Reason)
}

func TestDelayedQueue_ShutdownCancelsTimers(t *testing.T) {
	q := newDelayedQueue()

	q.AddAfter(syncRequest{Application: "web"}, 20*time.Millisecond)
	q.Shutdown()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, q.Len())
}
