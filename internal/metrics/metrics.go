// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Procedure call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Provisioning job statuses.
const (
	JobEnqueued     = "enqueued"
	JobSucceeded    = "succeeded"
	JobRetried      = "retried"
	JobDeadLettered = "dead_lettered"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Click path
	IncClickCacheHit()
	IncClickCacheMiss()
	ObserveClickDuration(duration time.Duration)
	IncTrackingEvent(eventType string)

	// Link generation
	AddTrackingLinksCreated(n int)
	AddTrackingLinksReused(n int)

	// Remote procedures; outcome is one of the Outcome constants.
	IncProcedureCall(procedure, outcome string)

	// Post-accept provisioning queue
	IncProvisioningJob(status string)
	SetProvisioningQueueDepth(depth int64)

	// Admin
	IncAdminAction(action string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
