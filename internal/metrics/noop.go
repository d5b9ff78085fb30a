package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncClickCacheHit() {}
func (n *NoopRecorder) IncClickCacheMiss() {}
func (n *NoopRecorder) ObserveClickDuration(duration time.Duration) {}
func (n *NoopRecorder) IncTrackingEvent(eventType string) {}
func (n *NoopRecorder) AddTrackingLinksCreated(count int) {}
func (n *NoopRecorder) AddTrackingLinksReused(count int) {}
func (n *NoopRecorder) IncProcedureCall(procedure, outcome string) {}
func (n *NoopRecorder) IncProvisioningJob(status string) {}
func (n *NoopRecorder) SetProvisioningQueueDepth(depth int64) {}
func (n *NoopRecorder) IncAdminAction(action string) {}
