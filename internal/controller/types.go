package controller

import (
	"time"

	"steward/internal/health"
	"steward/internal/resource"
	"steward/internal/syncer"
)

// TriggerReason says why a reconciliation pass was requested. The reason
// decides whether the pass may write: interval and source triggers apply
// only for automated applications, drift triggers only when self-heal is on,
// and manual triggers always apply.
type TriggerReason string

const (
	TriggerInterval TriggerReason = "interval"
	TriggerSource   TriggerReason = "source"
	TriggerDrift    TriggerReason = "drift"
	TriggerManual   TriggerReason = "manual"
)

// syncRequest is one unit of queue work: reconcile this application.
type syncRequest struct {
	Application string
	Reason      TriggerReason
	Attempt     int
}

// SyncState is the controller's verdict on an application.
type SyncState string

const (
	// SyncStateUnknown means no pass has completed yet.
	SyncStateUnknown SyncState = "Unknown"

	// SyncStateSynced means desired and live state matched or were made to
	// match by the last pass.
	SyncStateSynced SyncState = "Synced"

	// SyncStateOutOfSync means a drift was detected but not applied, either
	// because the policy is not automated or because the trigger did not
	// permit writing.
	SyncStateOutOfSync SyncState = "OutOfSync"

	// SyncStateError means the last pass failed: source fetch, rendering,
	// cluster reads, or one or more apply operations.
	SyncStateError SyncState = "Error"
)

// AppStatus is the externally visible state of one application, served by
// the status API and the status command.
type AppStatus struct {
	Application string        `json:"application"`
	State       SyncState     `json:"state"`
	Health      health.Status `json:"health"`
	Revision    string        `json:"revision,omitempty"`

	// RenderErrors carries per-document render failures of the last pass.
	RenderErrors []string `json:"renderErrors,omitempty"`

	// Orphans are live managed resources no longer desired, reported when
	// pruning is disabled.
	Orphans []resource.Key `json:"orphans,omitempty"`

	// Operations is the per-resource outcome of the last applying pass.
	Operations []syncer.OperationResult `json:"operations,omitempty"`

	Resources []health.ResourceHealth `json:"resources,omitempty"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	LastAttempt  time.Time  `json:"lastAttempt,omitzero"`
	LastError    string     `json:"lastError,omitempty"`
	RetryCount   int        `json:"retryCount,omitempty"`
}
