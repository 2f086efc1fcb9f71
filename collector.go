package vtprobe

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes the agent activity counters to Prometheus. Register
// it with a prometheus.Registerer; values are read from the same atomic
// counters GetMetrics reports.
type Collector struct {
	sweeps        *prometheus.Desc
	inspections   *prometheus.Desc
	suspends      *prometheus.Desc
	resumes       *prometheus.Desc
	mounts        *prometheus.Desc
	validations   *prometheus.Desc
	skips         *prometheus.Desc
	probeFailures *prometheus.Desc
	avgSweepNs    *prometheus.Desc
}

// NewCollector creates a Collector for the process-wide agent counters.
func NewCollector() *Collector {
	return &Collector{
		sweeps: prometheus.NewDesc("vtprobe_sweeps_total",
			"Synchronous validation sweeps run", nil, nil),
		inspections: prometheus.NewDesc("vtprobe_carrier_inspections_total",
			"Carrier threads inspected during sweeps", nil, nil),
		suspends: prometheus.NewDesc("vtprobe_suspend_operations_total",
			"Carrier suspend operations issued", nil, nil),
		resumes: prometheus.NewDesc("vtprobe_resume_operations_total",
			"Carrier resume operations issued", nil, nil),
		mounts: prometheus.NewDesc("vtprobe_mount_events_total",
			"Virtual-thread mount notifications received", nil, nil),
		validations: prometheus.NewDesc("vtprobe_validations_total",
			"Virtual threads that passed full validation", nil, nil),
		skips: prometheus.NewDesc("vtprobe_skips_total",
			"Carriers skipped on benign races", []string{"reason"}, nil),
		probeFailures: prometheus.NewDesc("vtprobe_probe_failures_total",
			"Restricted operations with an unexpected outcome", nil, nil),
		avgSweepNs: prometheus.NewDesc("vtprobe_sweep_duration_avg_ns",
			"Average sweep duration in nanoseconds", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sweeps
	ch <- c.inspections
	ch <- c.suspends
	ch <- c.resumes
	ch <- c.mounts
	ch <- c.validations
	ch <- c.skips
	ch <- c.probeFailures
	ch <- c.avgSweepNs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := GetMetrics()
	ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(m.Sweeps))
	ch <- prometheus.MustNewConstMetric(c.inspections, prometheus.CounterValue, float64(m.CarrierInspections))
	ch <- prometheus.MustNewConstMetric(c.suspends, prometheus.CounterValue, float64(m.SuspendOps))
	ch <- prometheus.MustNewConstMetric(c.resumes, prometheus.CounterValue, float64(m.ResumeOps))
	ch <- prometheus.MustNewConstMetric(c.mounts, prometheus.CounterValue, float64(m.MountEvents))
	ch <- prometheus.MustNewConstMetric(c.validations, prometheus.CounterValue, float64(m.Validations))
	ch <- prometheus.MustNewConstMetric(c.skips, prometheus.CounterValue, float64(m.SkipsNotAlive), "not_alive")
	ch <- prometheus.MustNewConstMetric(c.skips, prometheus.CounterValue, float64(m.SkipsNotSuspended), "not_suspended")
	ch <- prometheus.MustNewConstMetric(c.probeFailures, prometheus.CounterValue, float64(m.ProbeFailures))
	ch <- prometheus.MustNewConstMetric(c.avgSweepNs, prometheus.GaugeValue, float64(m.AvgSweepTimeNs))
}
