package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ClickCacheHits        uint64
	ClickCacheMisses      uint64
	ClickDurationCount    uint64
	TrackingEvents        map[string]uint64
	TrackingLinksCreated  uint64
	TrackingLinksReused   uint64
	ProcedureCalls        map[string]uint64 // key: procedure + "/" + outcome
	ProvisioningJobs      map[string]uint64
	ProvisioningQueueSize int64
	AdminActions          map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	clickCacheHits       uint64
	clickCacheMisses     uint64
	clickDurationCount   uint64
	trackingLinksCreated uint64
	trackingLinksReused  uint64
	queueDepth           int64

	mu               sync.Mutex
	trackingEvents   map[string]uint64
	procedureCalls   map[string]uint64
	provisioningJobs map[string]uint64
	adminActions     map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		trackingEvents:   make(map[string]uint64),
		procedureCalls:   make(map[string]uint64),
		provisioningJobs: make(map[string]uint64),
		adminActions:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		ClickCacheHits:        atomic.LoadUint64(&m.clickCacheHits),
		ClickCacheMisses:      atomic.LoadUint64(&m.clickCacheMisses),
		ClickDurationCount:    atomic.LoadUint64(&m.clickDurationCount),
		TrackingEvents:        copyCounts(m.trackingEvents),
		TrackingLinksCreated:  atomic.LoadUint64(&m.trackingLinksCreated),
		TrackingLinksReused:   atomic.LoadUint64(&m.trackingLinksReused),
		ProcedureCalls:        copyCounts(m.procedureCalls),
		ProvisioningJobs:      copyCounts(m.provisioningJobs),
		ProvisioningQueueSize: atomic.LoadInt64(&m.queueDepth),
		AdminActions:          copyCounts(m.adminActions),
	}
}

func (m *InMemoryRecorder) IncClickCacheHit() {
	atomic.AddUint64(&m.clickCacheHits, 1)
}

func (m *InMemoryRecorder) IncClickCacheMiss() {
	atomic.AddUint64(&m.clickCacheMisses, 1)
}

func (m *InMemoryRecorder) ObserveClickDuration(duration time.Duration) {
	atomic.AddUint64(&m.clickDurationCount, 1)
}

func (m *InMemoryRecorder) IncTrackingEvent(eventType string) {
	m.inc(m.trackingEvents, eventType)
}

func (m *InMemoryRecorder) AddTrackingLinksCreated(n int) {
	atomic.AddUint64(&m.trackingLinksCreated, uint64(n))
}

func (m *InMemoryRecorder) AddTrackingLinksReused(n int) {
	atomic.AddUint64(&m.trackingLinksReused, uint64(n))
}

func (m *InMemoryRecorder) IncProcedureCall(procedure, outcome string) {
	m.inc(m.procedureCalls, procedure+"/"+outcome)
}

func (m *InMemoryRecorder) IncProvisioningJob(status string) {
	m.inc(m.provisioningJobs, status)
}

func (m *InMemoryRecorder) SetProvisioningQueueDepth(depth int64) {
	atomic.StoreInt64(&m.queueDepth, depth)
}

func (m *InMemoryRecorder) IncAdminAction(action string) {
	m.inc(m.adminActions, action)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
