package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
)

// AlertListener emails recipients when a job whose AlertOnError flag is
// set reports JOB_ERROR. It is a plain eventbus.Listener function — wire
// it with scheduler.AddListener(domain.JobError, listener.Listen) — kept
// stateless aside from the jobs it already has a snapshot for, since the
// event carries no job metadata beyond id and executor.
type AlertListener struct {
	sender     Sender
	recipients []string
	from       string
	logger     *slog.Logger

	// AlertOnError jobs are tracked by id so the listener knows which
	// JOB_ERROR events to act on without re-reading the store.
	alerting map[string]bool
}

func NewAlertListener(sender Sender, recipients []string, logger *slog.Logger) *AlertListener {
	return &AlertListener{
		sender:     sender,
		recipients: recipients,
		logger:     logger.With("component", "alert_listener"),
		alerting:   make(map[string]bool),
	}
}

// Track registers a job id as alert-worthy; call it whenever a job with
// AlertOnError=true is added, and Untrack on removal.
func (l *AlertListener) Track(jobID string)   { l.alerting[jobID] = true }
func (l *AlertListener) Untrack(jobID string) { delete(l.alerting, jobID) }

// Listen is the eventbus.Listener to register under the domain.JobError
// mask.
func (l *AlertListener) Listen(event domain.Event) {
	if event.Code != domain.JobError || !l.alerting[event.JobID] {
		return
	}

	subject := fmt.Sprintf("job %s failed", event.JobID)
	body := fmt.Sprintf(
		"Job %s reported an error at %s.\n\nExecutor: %s\nScheduled run times: %v\nError: %v\n",
		event.JobID, event.Time.Format(time.RFC3339), event.ExecutorName, event.ScheduledRunTimes, event.Err,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, to := range l.recipients {
		if err := l.sender.Send(ctx, to, subject, body); err != nil {
			l.logger.Error("alert email failed", "job_id", event.JobID, "to", to, "error", err)
		}
	}
}
