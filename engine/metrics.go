package engine

import "sync/atomic"

// SchedulerMetrics is a point-in-time snapshot of one run's scheduler
// activity, adapted from the teacher's PrometheusMetrics gauges but
// returned as a plain value type (Result.Metrics) rather than feeding
// Prometheus directly; a caller wanting Prometheus export wraps this in
// its own gauge set. The run loop never updates QueueDepth or
// BackpressureEvents, so both read zero.
type SchedulerMetrics struct {
	ActiveNodes        int64
	QueueDepth         int64
	TotalSteps         int64
	BackpressureEvents int64
	PeakActiveNodes    int64
}

// schedulerCounters holds the live atomics a run updates as it
// executes; snapshot reads them without blocking the scheduler.
type schedulerCounters struct {
	active             int64
	queueDepth         int64
	totalSteps         int64
	backpressureEvents int64
	peakActive         int64
}

func (c *schedulerCounters) nodeStarted() {
	n := atomic.AddInt64(&c.active, 1)
	for {
		peak := atomic.LoadInt64(&c.peakActive)
		if n <= peak || atomic.CompareAndSwapInt64(&c.peakActive, peak, n) {
			break
		}
	}
}

func (c *schedulerCounters) nodeFinished() {
	atomic.AddInt64(&c.active, -1)
}

func (c *schedulerCounters) stepTaken() {
	atomic.AddInt64(&c.totalSteps, 1)
}

func (c *schedulerCounters) setQueueDepth(n int) {
	atomic.StoreInt64(&c.queueDepth, int64(n))
}

func (c *schedulerCounters) backpressure() {
	atomic.AddInt64(&c.backpressureEvents, 1)
}

func (c *schedulerCounters) snapshot() SchedulerMetrics {
	return SchedulerMetrics{
		ActiveNodes:        atomic.LoadInt64(&c.active),
		QueueDepth:         atomic.LoadInt64(&c.queueDepth),
		TotalSteps:         atomic.LoadInt64(&c.totalSteps),
		BackpressureEvents: atomic.LoadInt64(&c.backpressureEvents),
		PeakActiveNodes:    atomic.LoadInt64(&c.peakActive),
	}
}
