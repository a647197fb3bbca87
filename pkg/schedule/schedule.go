// Package schedule starts workflow runs on the cron expressions workflows carry.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
)

// DefaultResyncInterval is how often the set of scheduled workflows is re-read.
const DefaultResyncInterval = time.Minute

// Source lists the cron expression of every scheduled workflow, keyed by workflow id.
type Source interface {
	Scheduled(ctx context.Context) (map[string]string, error)
}

// Starter runs a workflow to completion.
type Starter interface {
	Run(ctx context.Context, workflowID string) (models.RunSummary, error)
}

// Validate reports whether expr is a standard five-field cron expression or descriptor.
func Validate(expr string) error {
	_, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return nil
}

type entry struct {
	expr string
	id   cron.EntryID
}

// Scheduler keeps one cron entry per scheduled workflow.
type Scheduler struct {
	source   Source
	starter  Starter
	logger   *slog.Logger
	cron     *cron.Cron
	interval time.Duration

	mu      sync.Mutex
	entries map[string]entry
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Scheduler)

// WithResyncInterval changes how often Start re-reads the source.
func WithResyncInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

func New(source Source, starter Starter, logger *slog.Logger, opts ...Option) *Scheduler {
	logger = logger.With("module", "schedule")

	s := &Scheduler{
		source:   source,
		starter:  starter,
		logger:   logger,
		interval: DefaultResyncInterval,
		entries:  make(map[string]entry),
		ctx:      context.Background(),
	}

	cronLogger := cronLogger{logger: logger}
	s.cron = cron.New(cron.WithLogger(cronLogger), cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start syncs the entries, starts the cron loop and re-syncs every interval. Runs started by
// the scheduler inherit the values of ctx but not its cancellation; Stop ends them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	err := s.Sync(ctx)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if err := s.Sync(s.runContext()); err != nil {
			s.logger.Error("Failed to sync schedules", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add resync job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "workflows", s.Len())

	return nil
}

// Stop halts the cron loop, cancels runs it started and waits for them until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled runs: %w", ctx.Err())
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ctx
}

// Len is the number of scheduled workflows.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Sync adds, replaces and removes entries so they match the source. Workflows whose
// expression does not parse are skipped with a warning.
func (s *Scheduler) Sync(ctx context.Context) error {
	wanted, err := s.source.Scheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled workflows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for workflowID, current := range s.entries {
		if expr, ok := wanted[workflowID]; !ok || expr != current.expr {
			s.cron.Remove(current.id)
			delete(s.entries, workflowID)
		}
	}

	for workflowID, expr := range wanted {
		if _, ok := s.entries[workflowID]; ok {
			continue
		}

		id, err := s.cron.AddFunc(expr, s.job(workflowID))
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping workflow with invalid schedule",
				"workflow_id", workflowID, "schedule", expr, "error", err)

			continue
		}

		s.entries[workflowID] = entry{expr: expr, id: id}
		s.logger.DebugContext(ctx, "Workflow scheduled", "workflow_id", workflowID, "schedule", expr)
	}

	return nil
}

func (s *Scheduler) job(workflowID string) func() {
	return func() {
		ctx := s.runContext()
		logger := s.logger.With("workflow_id", workflowID)

		logger.InfoContext(ctx, "Scheduled run triggered")

		summary, err := s.starter.Run(ctx, workflowID)
		if err != nil {
			if engine.IsWorkflowBusy(err) {
				logger.WarnContext(ctx, "Skipping scheduled run, workflow is busy")

				return
			}

			logger.ErrorContext(ctx, "Scheduled run refused", "error", err)

			return
		}

		logger.InfoContext(ctx, "Scheduled run finished", "run_id", summary.RunID, "outcome", summary.Outcome)
	}
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
