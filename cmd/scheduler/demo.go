package main

import (
	"log"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/store"
)

// registerDemoCallables registers the handful of named callables a
// persistent-store job can reference by RegistryName (design note §9:
// "Persistent stores must accept only registry-resolvable references").
// Operators extend this at their call site; these two exist so a fresh
// checkout has something to point a first job at.
func registerDemoCallables(registry *store.CallableRegistry) {
	registry.Register("demo.heartbeat", func(run domain.RunContext) (any, error) {
		log.Printf("heartbeat: job=%s scheduled=%v", run.JobID, run.ScheduledRunTimes)
		return "ok", nil
	})

	registry.Register("demo.echo", func(run domain.RunContext) (any, error) {
		return run.Args, nil
	})
}
