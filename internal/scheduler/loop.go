package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/metrics"
	"github.com/chronoflow/scheduler/internal/store"
)

// dueEntry pairs a due job with the store (and its alias) it was read
// from, so dispatch can write the rolled-forward next_run_time back to
// the right place after merging the due sets of every store into one
// ascending-by-(next_run_time, id) sequence (spec.md §5 ordering
// guarantee).
type dueEntry struct {
	alias string
	store store.JobStore
	job   *domain.Job
}

// runLoop is the wake-dispatch loop from spec.md §4.5. Dispatch-time store
// writes (rolled-forward next_run_time, removal of exhausted jobs) happen
// on this goroutine; the public job API (AddJob, UpdateJob, PauseJob,
// ResumeJob, RemoveJob, RemoveAllJobs) writes to the stores directly from
// the caller's goroutine.
func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.loopDone)

	for {
		s.mu.Lock()
		state := s.state
		s.mu.Unlock()

		if state == domain.StateStopped {
			return
		}
		if state != domain.StateRunning {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		tickStart := time.Now()
		now := time.Now().In(s.loc)
		s.tick(ctx, now)
		metrics.TickDuration.Observe(time.Since(tickStart).Seconds())

		wait := s.computeWait(ctx, now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// tick implements steps 2-4 of the wake loop: gather due jobs across every
// store, merge into one ascending order, and dispatch each.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	var due []dueEntry
	for alias, st := range s.snapshotStores() {
		jobs, err := st.GetDueJobs(ctx, now)
		if err != nil {
			// Infrastructure failure in one store isolates to that store
			// (spec.md §7 propagation policy); the others still dispatch.
			s.logger.Error("get due jobs failed", "store", alias, "error", err)
			continue
		}
		for _, job := range jobs {
			due = append(due, dueEntry{alias: alias, store: st, job: job})
		}
	}

	sort.Slice(due, func(i, k int) bool {
		a, b := due[i].job, due[k].job
		if !a.NextRunTime.Equal(*b.NextRunTime) {
			return a.NextRunTime.Before(*b.NextRunTime)
		}
		return a.ID < b.ID
	})

	for _, entry := range due {
		s.dispatchJob(ctx, entry, now)
	}
}

// dispatchJob implements spec.md §4.5.4(a)-(d) for a single job.
func (s *Scheduler) dispatchJob(ctx context.Context, entry dueEntry, now time.Time) {
	job := entry.job
	kept, missed, lastCandidate := computeFirings(job, now)

	for _, scheduled := range missed {
		s.bus.Dispatch(domain.Event{
			Code:              domain.JobMissed,
			Time:              time.Now(),
			JobID:             job.ID,
			StoreAlias:        entry.alias,
			ScheduledRunTimes: []time.Time{scheduled},
		})
	}

	if job.Coalesce && len(kept) > 1 {
		kept = kept[len(kept)-1:]
	}

	if len(kept) > 0 {
		s.submit(ctx, entry, kept, now)
	}

	if lastCandidate != nil {
		job.NextRunTime = lastCandidate
		job.UpdatedAt = now
		if err := entry.store.UpdateJob(ctx, job); err != nil {
			s.logger.Error("roll forward next_run_time failed", "job_id", job.ID, "error", err)
		}
	} else {
		if err := entry.store.RemoveJob(ctx, job.ID); err != nil {
			s.logger.Error("remove exhausted job failed", "job_id", job.ID, "error", err)
		}
	}
}

func (s *Scheduler) submit(ctx context.Context, entry dueEntry, scheduledRunTimes []time.Time, now time.Time) {
	job := entry.job
	ex, err := s.executorByName(job.ExecutorName)
	if err != nil {
		s.logger.Error("unknown executor for job", "job_id", job.ID, "executor", job.ExecutorName)
		return
	}

	req := domain.RunRequest{
		JobSnapshot:       job.Clone(),
		ScheduledRunTimes: scheduledRunTimes,
		SubmittedAt:       now,
	}

	err = ex.Send(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrMaxInstancesReached) {
			s.bus.Dispatch(domain.Event{
				Code:              domain.JobMaxInstances,
				Time:              time.Now(),
				JobID:             job.ID,
				StoreAlias:        entry.alias,
				ExecutorName:      job.ExecutorName,
				ScheduledRunTimes: scheduledRunTimes,
			})
			return
		}
		s.logger.Error("executor send failed", "job_id", job.ID, "executor", job.ExecutorName, "error", err)
		return
	}

	s.bus.Dispatch(domain.Event{
		Code:              domain.JobSubmitted,
		Time:              time.Now(),
		JobID:             job.ID,
		StoreAlias:        entry.alias,
		ExecutorName:      job.ExecutorName,
		ScheduledRunTimes: scheduledRunTimes,
	})
}

// computeFirings walks a due job's missed and due-now firings starting
// from its stored next_run_time, per spec.md §4.5.4(a). kept holds
// in-grace firings, missed holds the ones older than the grace window,
// and lastCandidate is the first candidate beyond now (nil if the trigger
// is exhausted).
func computeFirings(job *domain.Job, now time.Time) (kept, missed []time.Time, lastCandidate *time.Time) {
	candidate := *job.NextRunTime
	for {
		if job.MisfireGraceTime == nil || now.Sub(candidate) <= *job.MisfireGraceTime {
			kept = append(kept, candidate)
		} else {
			missed = append(missed, candidate)
		}

		next, ok := job.Trigger.Next(candidate, now)
		if !ok {
			return kept, missed, nil
		}
		if next.After(now) {
			return kept, missed, &next
		}
		candidate = next
	}
}

// computeWait implements step 5: the earliest next_run_time across every
// store, clamped to [0, tickMax].
func (s *Scheduler) computeWait(ctx context.Context, now time.Time) time.Duration {
	var earliest *time.Time
	for alias, st := range s.snapshotStores() {
		t, err := st.GetNextRunTime(ctx)
		if err != nil {
			s.logger.Error("get next run time failed", "store", alias, "error", err)
			continue
		}
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
	}

	if earliest == nil {
		return s.tickMax
	}
	wait := earliest.Sub(now)
	if wait < 0 {
		wait = 0
	}
	if wait > s.tickMax {
		wait = s.tickMax
	}
	return wait
}
