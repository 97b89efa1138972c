package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applog "pricewatch/internal/log"
)

// JobFunc is a scheduled job body.
type JobFunc func(ctx context.Context) error

// Scheduler holds named job definitions with cron trigger specs. Each job
// carries its own run-lock: a trigger arriving while the job is running is
// skipped and logged, never queued. Multiple schedulers can coexist; there
// is no ambient registry.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	name    string
	fn      JobFunc
	running sync.Mutex
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New(), jobs: make(map[string]*job)}
}

// Register adds a job under a cron spec (standard 5-field format).
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	j := &job{name: name, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.runJob(j) }); err != nil {
		return err
	}
	s.jobs[name] = j
	applog.Job(name, "job.registered", map[string]any{"spec": spec})
	return nil
}

// RunNow triggers a registered job outside its schedule, subject to the
// same run-lock.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	s.runJob(j)
	return nil
}

func (s *Scheduler) runJob(j *job) {
	if !j.running.TryLock() {
		applog.Job(j.name, "job.skipped", map[string]any{"reason": "previous run still active"})
		return
	}
	defer j.running.Unlock()

	if err := j.fn(context.Background()); err != nil {
		applog.JobError(j.name, "job.fail", err, nil)
		return
	}
	applog.Job(j.name, "job.done", nil)
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling; running jobs finish on their own.
func (s *Scheduler) Stop() { s.cron.Stop() }
