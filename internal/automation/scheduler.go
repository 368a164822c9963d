package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Sampler takes one sensor sample.
type Sampler interface {
	Sample(ctx context.Context) (reading.Reading, error)
}

// Pruner deletes records older than a cut-off.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler drives the controller from cron specs and on-demand triggers.
//
// Cycles never run concurrently with each other: both the cycle schedule
// and Trigger feed a single runner goroutine through a one-slot channel,
// so any number of triggers arriving during a cycle collapse into one
// follow-up cycle.
type Scheduler struct {
	cron       *cron.Cron
	controller *Controller
	logger     Logger
	now        func() time.Time

	kick chan struct{}

	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex

	ctx    context.Context //nolint:containedctx // job lifetime, set by Start
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for controller.
func NewScheduler(controller *Controller, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		controller: controller,
		logger:     logger,
		now:        time.Now,
		kick:       make(chan struct{}, 1),
		jobs:       make(map[string]cron.EntryID),
		ctx:        context.Background(),
	}
}

// AddJob registers fn under name on a cron spec. fn receives the
// scheduler's context.
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("scheduled job triggered", "job", name)
		fn(s.jobContext())
	})
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}

	s.jobsMu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = id
	s.jobsMu.Unlock()

	s.logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// ScheduleCycles runs an automation cycle on spec.
func (s *Scheduler) ScheduleCycles(spec string) error {
	return s.AddJob("automation-cycle", spec, func(context.Context) { s.Trigger() })
}

// ScheduleSampling takes a sensor sample on spec.
func (s *Scheduler) ScheduleSampling(spec string, sampler Sampler) error {
	return s.AddJob("sensor-sample", spec, func(ctx context.Context) {
		if _, err := sampler.Sample(ctx); err != nil {
			s.logger.Warn("sensor sample failed", "error", err)
		}
	})
}

// ScheduleLights switches the lights on and off on two specs.
func (s *Scheduler) ScheduleLights(onSpec, offSpec string) error {
	if err := s.AddJob("lights-on", onSpec, func(ctx context.Context) { s.switchLights(ctx, true) }); err != nil {
		return err
	}
	return s.AddJob("lights-off", offSpec, func(ctx context.Context) { s.switchLights(ctx, false) })
}

// ScheduleRetention prunes records older than keep on spec, then runs
// optimize (may be nil).
func (s *Scheduler) ScheduleRetention(spec string, keep time.Duration, optimize func(ctx context.Context) error, pruners ...Pruner) error {
	return s.AddJob("retention", spec, func(ctx context.Context) {
		s.prune(ctx, keep, optimize, pruners)
	})
}

// Trigger requests a cycle. Requests made while one is pending are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return len(s.jobs)
}

// Start begins running jobs and the cycle runner until ctx is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.jobsMu.Lock()
	s.ctx, s.cancel = ctx, cancel
	s.jobsMu.Unlock()

	s.wg.Add(1)
	go s.runCycles(ctx)

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.JobCount())
}

// Stop halts the cron, cancels running jobs and waits for the runner.
func (s *Scheduler) Stop() {
	s.jobsMu.RLock()
	cancel := s.cancel
	s.jobsMu.RUnlock()
	if cancel != nil {
		cancel()
	}

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCycles(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			if _, err := s.controller.RunCycle(ctx); err != nil {
				s.logger.Error("automation cycle failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) switchLights(ctx context.Context, on bool) {
	changed, err := s.controller.ScheduledSet(ctx, device.Lights, on)
	if err != nil {
		s.logger.Error("light schedule failed", "state", device.StateString(on), "error", err)
		return
	}
	if changed {
		s.logger.Info("lights switched by schedule", "state", device.StateString(on))
	}
}

func (s *Scheduler) prune(ctx context.Context, keep time.Duration, optimize func(ctx context.Context) error, pruners []Pruner) {
	before := s.now().Add(-keep)
	var total int64
	for _, p := range pruners {
		n, err := p.Prune(ctx, before)
		if err != nil {
			s.logger.Error("retention prune failed", "error", err)
			continue
		}
		total += n
	}
	if optimize != nil {
		if err := optimize(ctx); err != nil {
			s.logger.Warn("database optimize failed", "error", err)
		}
	}
	s.logger.Info("retention completed", "deleted", total, "before", before.Format(time.RFC3339))
}

func (s *Scheduler) jobContext() context.Context {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return s.ctx
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
