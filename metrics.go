package vtprobe

import (
	"sync/atomic"
	"time"
)

// Counters for monitoring agent activity
var (
	// Operation counters
	sweepCount         uint64
	carrierInspections uint64
	suspendOps         uint64
	resumeOps          uint64
	mountEvents        uint64
	validations        uint64

	// Timing metrics (nanoseconds)
	totalSweepTime uint64

	// Skip and failure counters
	skipsNotAlive     uint64
	skipsNotSuspended uint64
	probeFailures     uint64
)

// Metrics provides access to agent activity counters
type Metrics struct {
	Sweeps             uint64 `json:"sweeps"`
	CarrierInspections uint64 `json:"carrier_inspections"`
	SuspendOps         uint64 `json:"suspend_operations"`
	ResumeOps          uint64 `json:"resume_operations"`
	MountEvents        uint64 `json:"mount_events"`
	Validations        uint64 `json:"validations"`
	AvgSweepTimeNs     uint64 `json:"avg_sweep_time_ns"`
	SkipsNotAlive      uint64 `json:"skips_not_alive"`
	SkipsNotSuspended  uint64 `json:"skips_not_suspended"`
	ProbeFailures      uint64 `json:"probe_failures"`
}

// GetMetrics returns current agent activity counters
func GetMetrics() Metrics {
	sweeps := atomic.LoadUint64(&sweepCount)

	var avgSweep uint64
	if sweeps > 0 {
		avgSweep = atomic.LoadUint64(&totalSweepTime) / sweeps
	}

	return Metrics{
		Sweeps:             sweeps,
		CarrierInspections: atomic.LoadUint64(&carrierInspections),
		SuspendOps:         atomic.LoadUint64(&suspendOps),
		ResumeOps:          atomic.LoadUint64(&resumeOps),
		MountEvents:        atomic.LoadUint64(&mountEvents),
		Validations:        atomic.LoadUint64(&validations),
		AvgSweepTimeNs:     avgSweep,
		SkipsNotAlive:      atomic.LoadUint64(&skipsNotAlive),
		SkipsNotSuspended:  atomic.LoadUint64(&skipsNotSuspended),
		ProbeFailures:      atomic.LoadUint64(&probeFailures),
	}
}

// ResetMetrics clears all agent activity counters
func ResetMetrics() {
	atomic.StoreUint64(&sweepCount, 0)
	atomic.StoreUint64(&carrierInspections, 0)
	atomic.StoreUint64(&suspendOps, 0)
	atomic.StoreUint64(&resumeOps, 0)
	atomic.StoreUint64(&mountEvents, 0)
	atomic.StoreUint64(&validations, 0)
	atomic.StoreUint64(&totalSweepTime, 0)
	atomic.StoreUint64(&skipsNotAlive, 0)
	atomic.StoreUint64(&skipsNotSuspended, 0)
	atomic.StoreUint64(&probeFailures, 0)
}

// Internal metric recording functions
func recordSweep(duration time.Duration) {
	atomic.AddUint64(&sweepCount, 1)
	atomic.AddUint64(&totalSweepTime, uint64(duration.Nanoseconds()))
}

func recordCarrierInspected() {
	atomic.AddUint64(&carrierInspections, 1)
}

func recordSuspend() {
	atomic.AddUint64(&suspendOps, 1)
}

func recordResume() {
	atomic.AddUint64(&resumeOps, 1)
}

func recordMountEvent() {
	atomic.AddUint64(&mountEvents, 1)
}

func recordValidation() {
	atomic.AddUint64(&validations, 1)
}

func recordSkipNotAlive() {
	atomic.AddUint64(&skipsNotAlive, 1)
}

func recordSkipNotSuspended() {
	atomic.AddUint64(&skipsNotSuspended, 1)
}

func recordProbeFailure() {
	atomic.AddUint64(&probeFailures, 1)
}
