package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/events"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UpstreamFailureDetail is the detail recorded on nodes skipped because a dependency failed.
const UpstreamFailureDetail = "upstream failure"

// Scheduler drives workflow runs: it walks the dependency graph, dispatches independent nodes
// concurrently and moves every node through the status state machine.
type Scheduler struct {
	executors   Executors
	concurrency int
	logger      *slog.Logger
	tracer      trace.Tracer
}

type SchedulerOption func(*Scheduler)

// WithConcurrency bounds how many nodes run at once. 0 means unbounded; 1 runs nodes one at a
// time in topological order.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.concurrency = n
		}
	}
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

func NewScheduler(executors Executors, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		executors: executors,
		logger:    slog.Default(),
		tracer:    otelhelper.Tracer("github.com/ryxhub/flowengine/pkg/engine"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("module", "scheduler")

	return s
}

// Execute starts a run and blocks until it ends. Cancelling ctx cancels the run; Execute still
// waits for nodes in flight and returns the final summary.
func (s *Scheduler) Execute(ctx context.Context, wf *Workflow) (models.RunSummary, error) {
	run, err := s.Start(ctx, wf)
	if err != nil {
		return models.RunSummary{}, err
	}

	<-run.Done()

	summary, _ := run.Summary()

	return summary, nil
}

// Start validates the graph, resets residue of the previous run and launches the run in the
// background. A cyclic graph, a busy workflow or a node type without executor is reported here
// and leaves every node untouched. Cancelling ctx cancels the run.
func (s *Scheduler) Start(ctx context.Context, wf *Workflow) (*Run, error) {
	runID := uuid.NewString()
	logger := s.logger.With("workflow_id", wf.id, "run_id", runID)

	wf.mu.Lock()

	if wf.running {
		wf.mu.Unlock()

		return nil, fmt.Errorf("start run on workflow %s: %w", wf.id, ErrWorkflowBusy)
	}

	order, err := wf.topologicalOrder()
	if err != nil {
		wf.mu.Unlock()
		logger.WarnContext(ctx, "Run refused", "error", err)

		return nil, fmt.Errorf("start run on workflow %s: %w", wf.id, err)
	}

	for _, n := range wf.nodes {
		if _, err := s.executors.lookup(n.typ); err != nil {
			wf.mu.Unlock()

			return nil, &NodeError{Op: "StartRun", NodeID: n.id, Err: err}
		}
	}

	if err := wf.beginRun(runID); err != nil {
		wf.mu.Unlock()

		return nil, err
	}

	started := wf.now()

	for _, n := range wf.nodes {
		if n.status.IsTerminal() {
			if err := wf.transition(n, models.NodeStatusIdle, stepInfo{runID: runID, at: started}); err != nil {
				logger.ErrorContext(ctx, "Failed to reset node before run", "node_id", n.id, "error", err)
			}
		}
	}

	p := newPlan(wf, order)
	variables := cloneConfig(wf.variables)

	wf.emit(events.RunStarted{
		BaseEvent: wf.baseEvent(events.RunStartedEvent, runID),
		Order:     order,
	})
	wf.mu.Unlock()

	publishCtx := context.WithoutCancel(ctx)
	wf.flush(publishCtx)

	spanCtx, span := otelhelper.StartSpan(ctx, s.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.id),
		attribute.String(otelhelper.RunIDKey, runID),
	)

	run := newRun(runID, wf)
	c := &coordinator{
		scheduler:  s,
		run:        run,
		wf:         wf,
		plan:       p,
		variables:  variables,
		workCtx:    spanCtx,
		publishCtx: publishCtx,
		logger:     logger,
		started:    started,
		done:       make(chan completion, len(order)),
	}

	logger.InfoContext(ctx, "Run started", "nodes", len(order))

	go func() {
		defer span.End()

		summary := c.loop(ctx)
		otelhelper.RunEnded(span, summary)
		run.finish(summary)
	}()

	return run, nil
}

// plan is the immutable dependency structure of one run.
type plan struct {
	order        []string
	index        map[string]int
	predecessors map[string][]string
	successors   map[string][]string
}

func newPlan(wf *Workflow, order []string) *plan {
	p := &plan{
		order:        order,
		index:        make(map[string]int, len(order)),
		predecessors: wf.predecessors(),
		successors:   make(map[string][]string, len(order)),
	}

	for i, id := range order {
		p.index[id] = i
	}

	for _, c := range wf.connections {
		p.successors[c.From] = append(p.successors[c.From], c.To)
	}

	return p
}

type completion struct {
	nodeID string
	result Result
	err    error
}

// coordinator owns every status transition of a run. Node work runs on worker goroutines and
// reports back through done; only the coordinator touches the graph state.
type coordinator struct {
	scheduler  *Scheduler
	run        *Run
	wf         *Workflow
	plan       *plan
	variables  map[string]any
	workCtx    context.Context
	publishCtx context.Context
	logger     *slog.Logger
	started    time.Time

	pending  map[string]int
	final    map[string]models.NodeStatus
	outputs  map[string]map[string]any
	ready    []string
	inflight int
	done     chan completion
}

func (c *coordinator) loop(ctx context.Context) models.RunSummary {
	c.pending = make(map[string]int, len(c.plan.order))
	c.final = make(map[string]models.NodeStatus, len(c.plan.order))
	c.outputs = make(map[string]map[string]any, len(c.plan.order))

	for _, id := range c.plan.order {
		c.pending[id] = len(c.plan.predecessors[id])
		if c.pending[id] == 0 {
			c.ready = append(c.ready, id)
		}
	}

	ctxDone := ctx.Done()

	for {
		if ctxDone != nil && ctx.Err() != nil {
			c.logger.InfoContext(c.publishCtx, "Run context done, cancelling", "error", ctx.Err())
			c.run.Cancel()
			ctxDone = nil
		}

		c.dispatch()

		cancelled, _ := c.run.state()
		if c.inflight == 0 && (cancelled || len(c.ready) == 0) {
			break
		}

		select {
		case done := <-c.done:
			// Work usually returns because ctx ended; the run must be cancelled before the
			// completion is recorded.
			if ctxDone != nil && ctx.Err() != nil {
				c.run.Cancel()
				ctxDone = nil
			}

			c.inflight--
			c.complete(done)
		case <-c.run.wake:
		case <-ctxDone:
			c.logger.InfoContext(c.publishCtx, "Run context done, cancelling", "error", ctx.Err())
			c.run.Cancel()
			ctxDone = nil
		}
	}

	return c.finish()
}

// dispatch starts ready nodes in topological order while the run allows it.
func (c *coordinator) dispatch() {
	limit := c.scheduler.concurrency

	for len(c.ready) > 0 && (limit == 0 || c.inflight < limit) {
		if cancelled, paused := c.run.state(); cancelled || paused {
			return
		}

		id := c.ready[0]
		c.ready = c.ready[1:]
		c.start(id)
	}
}

func (c *coordinator) start(id string) {
	c.wf.mu.Lock()
	n := c.wf.byID[id]
	err := c.wf.transition(n, models.NodeStatusRunning, stepInfo{runID: c.run.id})
	view := c.wf.view(n)
	c.wf.mu.Unlock()
	c.wf.flush(c.publishCtx)

	if err != nil {
		// Unreachable with a consistent plan; the node is treated as failed so its
		// dependents are not started on a stale status.
		c.logger.Error("Failed to start node", "node_id", id, "error", err)
		c.final[id] = models.NodeStatusError
		c.release(id)

		return
	}

	executor, err := c.scheduler.executors.lookup(view.Type)
	if err != nil {
		c.inflight++
		c.done <- completion{nodeID: id, err: err}

		return
	}

	inputs := make(map[string]map[string]any, len(c.plan.predecessors[id]))
	for _, pred := range c.plan.predecessors[id] {
		inputs[pred] = cloneConfig(c.outputs[pred])
	}

	task := Task{
		RunID:      c.run.id,
		WorkflowID: c.wf.id,
		Node:       view,
		Inputs:     inputs,
		Variables:  cloneConfig(c.variables),
	}

	c.inflight++

	go func() {
		result, err := c.invoke(executor, task)
		c.done <- completion{nodeID: id, result: result, err: err}
	}()
}

func (c *coordinator) invoke(executor Executor, task Task) (result Result, err error) {
	ctx, span := otelhelper.StartSpan(c.workCtx, c.scheduler.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, task.Node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(task.Node.Type)),
		attribute.String(otelhelper.NodeNameKey, task.Node.Name),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("node work panicked: %v", rec)
		}

		if err != nil {
			otelhelper.NodeFailed(span, task.Node.ID, err)
		}
	}()

	c.logger.DebugContext(ctx, "Executing node", "node_id", task.Node.ID, "node_type", task.Node.Type)

	return executor.Execute(ctx, task)
}

// complete records a finished node's terminal status and evaluates its dependents.
func (c *coordinator) complete(done completion) {
	status := models.NodeStatusSuccess
	detail := done.result.Detail

	if done.err != nil {
		status = models.NodeStatusError
		detail = done.err.Error()
	}

	if cancelled, _ := c.run.state(); cancelled {
		detail = fmt.Sprintf("run cancelled while node was running (work ended in %s)", status)
		status = models.NodeStatusCancelled
	}

	c.wf.mu.Lock()
	n := c.wf.byID[done.nodeID]

	for _, line := range done.result.Logs {
		c.wf.appendLog(n, c.run.id, line)
	}

	if err := c.wf.transition(n, status, stepInfo{runID: c.run.id, detail: detail}); err != nil {
		c.logger.Error("Failed to complete node", "node_id", done.nodeID, "error", err)
	}
	c.wf.mu.Unlock()
	c.wf.flush(c.publishCtx)

	if status == models.NodeStatusError {
		c.logger.Warn("Node failed", "node_id", done.nodeID, "error", detail)
	} else {
		c.logger.Debug("Node finished", "node_id", done.nodeID, "status", status)
	}

	c.final[done.nodeID] = status
	c.outputs[done.nodeID] = done.result.Output
	c.release(done.nodeID)
}

// release evaluates the dependents of a terminal node whose predecessors are now all terminal.
func (c *coordinator) release(id string) {
	for _, next := range c.plan.successors[id] {
		c.pending[next]--
		if c.pending[next] > 0 {
			continue
		}

		c.evaluate(next)
	}
}

func (c *coordinator) evaluate(id string) {
	if cancelled, _ := c.run.state(); cancelled {
		return
	}

	for _, pred := range c.plan.predecessors[id] {
		if c.final[pred] == models.NodeStatusSuccess {
			continue
		}

		c.wf.mu.Lock()
		err := c.wf.transition(c.wf.byID[id], models.NodeStatusError,
			stepInfo{runID: c.run.id, detail: UpstreamFailureDetail})
		c.wf.mu.Unlock()
		c.wf.flush(c.publishCtx)

		if err != nil {
			c.logger.Error("Failed to mark upstream failure", "node_id", id, "error", err)
		}

		c.final[id] = models.NodeStatusError
		c.release(id)

		return
	}

	pos, _ := slices.BinarySearchFunc(c.ready, id, func(a, b string) int {
		return c.plan.index[a] - c.plan.index[b]
	})
	c.ready = slices.Insert(c.ready, pos, id)
}

func (c *coordinator) finish() models.RunSummary {
	cancelled, _ := c.run.state()

	c.wf.mu.RLock()
	summary := models.RunSummary{
		RunID:      c.run.id,
		WorkflowID: c.wf.id,
		Order:      c.plan.order,
		StartedAt:  c.started,
		EndedAt:    c.wf.now(),
		Statuses:   make(map[string]models.NodeStatus, len(c.plan.order)),
	}

	for _, id := range c.plan.order {
		status := c.wf.byID[id].status
		summary.Statuses[id] = status

		switch status {
		case models.NodeStatusError:
			summary.Failed = append(summary.Failed, id)
		case models.NodeStatusCancelled:
			summary.Cancelled = append(summary.Cancelled, id)
		}
	}
	c.wf.mu.RUnlock()

	switch {
	case cancelled:
		summary.Outcome = models.RunOutcomeCancelled
	case len(summary.Failed) > 0:
		summary.Outcome = models.RunOutcomeError
	default:
		summary.Outcome = models.RunOutcomeSuccess
	}

	c.wf.endRun()
	c.wf.emit(events.RunEnded{
		BaseEvent: c.wf.baseEvent(events.RunEndedEvent, c.run.id),
		Summary:   summary,
	})
	c.wf.flush(c.publishCtx)

	c.logger.Info("Run ended", "outcome", summary.Outcome, "failed", len(summary.Failed),
		"cancelled", len(summary.Cancelled))

	return summary
}
