// Package jobs runs TailAid's background work on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs named jobs on cron expressions that carry a seconds field.
// Overlapping runs of one job are skipped and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{sugar: logger.Named("cron").Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started", zap.Strings("jobs", s.GetJobNames()))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Scheduler stopping")
	return s.cron.Stop()
}

// AddJob registers job under a unique name. expr is a six-field cron
// expression such as "0 * * * * *" or a descriptor like "@every 30s".
func (s *Scheduler) AddJob(name, expr string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.entries[name]; taken {
		return fmt.Errorf("job %q is already scheduled", name)
	}

	log := s.logger.With(zap.String("job", name))
	id, err := s.cron.AddFunc(expr, func() {
		start := time.Now()
		job()
		log.Debug("Job finished", zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}

	s.entries[name] = id
	log.Info("Job scheduled", zap.String("schedule", expr))
	return nil
}

func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("job %q is not scheduled", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)

	s.logger.Info("Job removed", zap.String("job", name))
	return nil
}

// GetJobNames lists scheduled jobs in name order
func (s *Scheduler) GetJobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.entries))
}

// cronLogger routes robfig/cron's logging into zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
