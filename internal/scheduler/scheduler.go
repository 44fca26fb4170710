package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/observability"
)

// JobFunc is one job body. A returned error marks the run failed; the
// job stays registered and runs again at its next cadence slot.
type JobFunc func(ctx context.Context) error

// JobStatus is a read-only snapshot of one registered job, served by the
// status API.
type JobStatus struct {
	Name      string    `json:"name"`
	Cadence   string    `json:"cadence"`
	NextRunAt time.Time `json:"nextRunAt"`
	Running   bool      `json:"running"`
}

type job struct {
	name    string
	cadence Cadence
	run     JobFunc

	mu      sync.Mutex
	nextRun time.Time
	running bool
}

// Scheduler drives registered jobs on their cadences. Each job is
// single-flight: the next run is computed only after the previous one
// finishes, so a slow scan can never overlap itself.
type Scheduler struct {
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	jobs    map[string]*job
	ordered []*job
	started bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		logger:  logger,
		metrics: metrics,
		jobs:    make(map[string]*job),
		now:     time.Now,
		sleep:   sleepWithContext,
	}
}

// RegisterJob adds a named job. Registration is rejected once Run has
// been called.
func (s *Scheduler) RegisterJob(name string, cadence Cadence, body JobFunc) error {
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if cadence == nil {
		return fmt.Errorf("cadence is required for job %q", name)
	}
	if body == nil {
		return fmt.Errorf("body is required for job %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started, cannot register job %q", name)
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q is already registered", name)
	}

	j := &job{name: name, cadence: cadence, run: body}
	s.jobs[name] = j
	s.ordered = append(s.ordered, j)
	return nil
}

// Run blocks until ctx is cancelled, then returns nil. Job errors are
// logged and counted, never fatal.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	jobs := make([]*job, len(s.ordered))
	copy(jobs, s.ordered)
	s.mu.Unlock()

	if len(jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	start := s.now()
	for _, j := range jobs {
		j.mu.Lock()
		j.nextRun = j.cadence.Next(start)
		j.mu.Unlock()

		s.logger.Info("job registered",
			zap.String("job", j.name),
			zap.String("cadence", j.cadence.String()),
			zap.Time("next_run", j.nextRun),
		)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		current := j
		group.Go(func() error {
			return s.runLoop(groupCtx, current)
		})
	}

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context, j *job) error {
	for {
		j.mu.Lock()
		next := j.nextRun
		j.mu.Unlock()

		wait := next.Sub(s.now())
		if wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		s.runOnce(ctx, j)

		j.mu.Lock()
		j.nextRun = j.cadence.Next(s.now())
		j.mu.Unlock()
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j *job) {
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()

		if recovered := recover(); recovered != nil {
			s.metrics.IncJobFailure(j.name)
			s.logger.Error("job panicked",
				zap.String("job", j.name),
				zap.Any("panic", recovered),
			)
		}
	}()

	jobCtx := observability.WithJobName(ctx, j.name)
	logger := observability.WithContextLogger(s.logger, jobCtx)

	s.metrics.IncJobRun(j.name)
	logger.Debug("job starting")

	start := s.now()
	err := j.run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.ObserveJobDuration(j.name, duration)

	if err != nil {
		s.metrics.IncJobFailure(j.name)
		logger.Error("job failed", zap.Duration("duration", duration), zap.Error(err))
		return
	}

	logger.Info("job finished", zap.Duration("duration", duration))
}

// ListJobs returns a snapshot of all registered jobs in registration
// order.
func (s *Scheduler) ListJobs() []JobStatus {
	s.mu.Lock()
	jobs := make([]*job, len(s.ordered))
	copy(jobs, s.ordered)
	s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jobs))
	for _, j := range jobs {
		j.mu.Lock()
		statuses = append(statuses, JobStatus{
			Name:      j.name,
			Cadence:   j.cadence.String(),
			NextRunAt: j.nextRun,
			Running:   j.running,
		})
		j.mu.Unlock()
	}

	sort.SliceStable(statuses, func(i, k int) bool { return statuses[i].Name < statuses[k].Name })
	return statuses
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
