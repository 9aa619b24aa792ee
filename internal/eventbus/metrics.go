package eventbus

import (
	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/metrics"
)

// MetricsListener returns a Listener that records the scheduler's
// prometheus counters straight off the event stream, so metrics never
// drift from what listeners see.
func MetricsListener() Listener {
	return func(event domain.Event) {
		switch event.Code {
		case domain.JobSubmitted:
			metrics.JobsSubmittedTotal.WithLabelValues(event.JobID).Inc()
		case domain.JobExecuted:
			metrics.JobsExecutedTotal.WithLabelValues("success").Inc()
		case domain.JobError:
			metrics.JobsExecutedTotal.WithLabelValues("error").Inc()
		case domain.JobMissed:
			metrics.JobsMissedTotal.WithLabelValues(event.JobID).Inc()
		case domain.JobMaxInstances:
			metrics.JobsMaxInstancesTotal.WithLabelValues(event.JobID).Inc()
		}
	}
}
