package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/common/expfmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordPass records one pass application and the entities it removed
func (r *Registry) RecordPass(pass string, duration time.Duration, nodesRemoved, edgesRemoved int, err error) {
	if r == nil {
		return
	}
	r.PassesTotal.WithLabelValues(pass, status(err)).Inc()
	r.PassDuration.WithLabelValues(pass).Observe(duration.Seconds())
	if nodesRemoved > 0 {
		r.NodesRemovedTotal.WithLabelValues(pass).Add(float64(nodesRemoved))
	}
	if edgesRemoved > 0 {
		r.EdgesRemovedTotal.WithLabelValues(pass).Add(float64(edgesRemoved))
	}
}

// RecordMetric records one metric computation
func (r *Registry) RecordMetric(metric string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.MetricDuration.WithLabelValues(metric).Observe(duration.Seconds())
	if err != nil {
		r.MetricErrorsTotal.WithLabelValues(metric).Inc()
	}
}

// RecordRun records the outcome of one sweep run
func (r *Registry) RecordRun(err error) {
	if r == nil {
		return
	}
	r.SweepRunsTotal.WithLabelValues(status(err)).Inc()
}

// RecordSweep records the wall time of a sweep
func (r *Registry) RecordSweep(duration time.Duration) {
	if r == nil {
		return
	}
	r.SweepDuration.Observe(duration.Seconds())
}

// WriteText writes every gathered metric family in the Prometheus text format
func (r *Registry) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
