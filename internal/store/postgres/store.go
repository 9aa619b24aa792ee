// Package postgres implements store.JobStore on top of pgx — the
// persistent backend the spec's §6 "Persistence layout" describes: each
// job is a self-describing record keyed by id and indexed by
// next_run_time, with the index updated atomically alongside the row.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/store"
	"github.com/chronoflow/scheduler/internal/trigger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a postgres-backed store.JobStore. Callables must be
// registry-resolvable (design note §9) — AddJob rejects a job whose
// Callable carries only an in-process Func, and rejects a composite
// (And/Or) Trigger, since neither can be serialized into trigger_spec.
type Store struct {
	pool     *pgxpool.Pool
	registry *store.CallableRegistry
	logger   *slog.Logger
}

// NewStore wraps an already-connected pool. Run Start once before use to
// apply the schema.
func NewStore(pool *pgxpool.Pool, registry *store.CallableRegistry, logger *slog.Logger) *Store {
	return &Store{pool: pool, registry: registry, logger: logger.With("component", "postgres_store")}
}

func (s *Store) Start(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("postgres store: apply schema: %w", err)
	}
	return nil
}

func (s *Store) Shutdown(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) AddJob(ctx context.Context, job *domain.Job) error {
	row, err := toRow(job)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scheduler_jobs (
			id, name, next_run_time, trigger_spec, registry_name, args,
			misfire_grace_secs, coalesce_misses, max_instances, executor_name,
			store_name, alert_on_error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		row.id, row.name, row.nextRunTime, row.triggerSpec, row.registryName, row.args,
		row.misfireGraceSecs, row.coalesce, row.maxInstances, row.executorName,
		row.storeName, row.alertOnError,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflictingID
		}
		return fmt.Errorf("postgres store: add job: %w", err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *domain.Job) error {
	row, err := toRow(job)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduler_jobs SET
			name = $2, next_run_time = $3, trigger_spec = $4, registry_name = $5,
			args = $6, misfire_grace_secs = $7, coalesce_misses = $8, max_instances = $9,
			executor_name = $10, store_name = $11, alert_on_error = $12, updated_at = now()
		WHERE id = $1`,
		row.id, row.name, row.nextRunTime, row.triggerSpec, row.registryName, row.args,
		row.misfireGraceSecs, row.coalesce, row.maxInstances, row.executorName,
		row.storeName, row.alertOnError,
	)
	if err != nil {
		return fmt.Errorf("postgres store: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *Store) RemoveJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scheduler_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres store: remove job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *Store) RemoveAllJobs(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM scheduler_jobs`)
	if err != nil {
		return fmt.Errorf("postgres store: remove all jobs: %w", err)
	}
	return nil
}

func (s *Store) LookupJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	return s.scanJob(row)
}

func (s *Store) GetDueJobs(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	rows, err := s.pool.Query(ctx,
		selectColumns+` WHERE next_run_time IS NOT NULL AND next_run_time <= $1 ORDER BY next_run_time ASC, id ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get due jobs: %w", err)
	}
	defer rows.Close()
	return s.scanJobs(rows)
}

func (s *Store) GetNextRunTime(ctx context.Context) (*time.Time, error) {
	var t *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(next_run_time) FROM scheduler_jobs WHERE next_run_time IS NOT NULL`).Scan(&t)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get next run time: %w", err)
	}
	return t, nil
}

func (s *Store) GetAllJobs(ctx context.Context) ([]*domain.Job, error) {
	rows, err := s.pool.Query(ctx,
		selectColumns+` ORDER BY next_run_time ASC NULLS LAST, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get all jobs: %w", err)
	}
	defer rows.Close()
	return s.scanJobs(rows)
}

const selectColumns = `
	SELECT id, name, next_run_time, trigger_spec, registry_name, args,
	       misfire_grace_secs, coalesce_misses, max_instances, executor_name,
	       store_name, alert_on_error, created_at, updated_at
	FROM scheduler_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			if errors.Is(err, domain.ErrDeserialization) {
				s.logger.Error("skipping unreadable job record", "error", err)
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) scanJob(row rowScanner) (*domain.Job, error) {
	var r jobRow
	err := row.Scan(
		&r.id, &r.name, &r.nextRunTime, &r.triggerSpec, &r.registryName, &r.args,
		&r.misfireGraceSecs, &r.coalesce, &r.maxInstances, &r.executorName,
		&r.storeName, &r.alertOnError, &r.createdAt, &r.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres store: scan job: %w", err)
	}
	return s.fromRow(r)
}

// jobRow is the flat scan target for a scheduler_jobs row.
type jobRow struct {
	id               string
	name             string
	nextRunTime      *time.Time
	triggerSpec      []byte
	registryName     string
	args             []byte
	misfireGraceSecs *int32
	coalesce         bool
	maxInstances     int32
	executorName     string
	storeName        string
	alertOnError     bool
	createdAt        time.Time
	updatedAt        time.Time
}

func toRow(job *domain.Job) (jobRow, error) {
	if job.Callable.RegistryName == "" {
		return jobRow{}, fmt.Errorf("postgres store: job %s: %w: callable has no registry name", job.ID, domain.ErrDeserialization)
	}
	spec, ok := trigger.Describe(job.Trigger)
	if !ok {
		return jobRow{}, fmt.Errorf("postgres store: job %s: %w: trigger kind is not persistable (composite triggers are memory-only)", job.ID, domain.ErrTriggerConfiguration)
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return jobRow{}, fmt.Errorf("postgres store: marshal trigger spec: %w", err)
	}
	argsJSON, err := json.Marshal(job.Callable.Args)
	if err != nil {
		return jobRow{}, fmt.Errorf("postgres store: marshal args: %w", err)
	}

	var grace *int32
	if job.MisfireGraceTime != nil {
		g := int32(*job.MisfireGraceTime / time.Second)
		grace = &g
	}

	return jobRow{
		id: job.ID, name: job.Name, nextRunTime: job.NextRunTime,
		triggerSpec: specJSON, registryName: job.Callable.RegistryName, args: argsJSON,
		misfireGraceSecs: grace, coalesce: job.Coalesce, maxInstances: int32(job.MaxInstances),
		executorName: job.ExecutorName, storeName: job.StoreName, alertOnError: job.AlertOnError,
	}, nil
}

func (s *Store) fromRow(r jobRow) (*domain.Job, error) {
	var spec trigger.Spec
	dec := json.NewDecoder(bytes.NewReader(r.triggerSpec))
	dec.DisallowUnknownFields() // design note §9.3: unknown keys are a construction error
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("postgres store: job %s: %w: decode trigger spec: %v", r.id, domain.ErrDeserialization, err)
	}
	trig, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("postgres store: job %s: %w: build trigger: %v", r.id, domain.ErrDeserialization, err)
	}

	var args map[string]any
	if len(r.args) > 0 {
		if err := json.Unmarshal(r.args, &args); err != nil {
			return nil, fmt.Errorf("postgres store: job %s: %w: decode args: %v", r.id, domain.ErrDeserialization, err)
		}
	}

	job := &domain.Job{
		ID: r.id, Name: r.name, NextRunTime: r.nextRunTime, Trigger: trig,
		Callable:     domain.Callable{RegistryName: r.registryName, Args: args},
		Coalesce:     r.coalesce,
		MaxInstances: int(r.maxInstances),
		ExecutorName: r.executorName,
		StoreName:    r.storeName,
		AlertOnError: r.alertOnError,
		CreatedAt:    r.createdAt,
		UpdatedAt:    r.updatedAt,
	}
	if r.misfireGraceSecs != nil {
		d := time.Duration(*r.misfireGraceSecs) * time.Second
		job.MisfireGraceTime = &d
	}
	if err := s.registry.Resolve(job); err != nil {
		return nil, err
	}
	return job, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
