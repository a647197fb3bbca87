package services

import (
	"context"
	"fmt"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/persistence"
)

// RunStatus describes the current or last run of a workflow.
type RunStatus struct {
	WorkflowID string             `json:"workflow_id"`
	RunID      string             `json:"run_id,omitempty"`
	Active     bool               `json:"active"`
	Paused     bool               `json:"paused"`
	Summary    *models.RunSummary `json:"summary,omitempty"`
}

// StartRun launches a run in the background. The run outlives ctx; it ends on its own, through
// CancelRun, or when the service shuts down. The document is saved once the run ends.
func (w *Workflow) StartRun(ctx context.Context, workflowID string) (*engine.Run, error) {
	active, err := w.startRun(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return active.run, nil
}

func (w *Workflow) startRun(ctx context.Context, workflowID string) (*activeRun, error) {
	wf, err := w.aggregate(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, running := w.runs[workflowID]; running {
		return nil, fmt.Errorf("start run on workflow %s: %w", workflowID, engine.ErrWorkflowBusy)
	}

	if !w.isLive(wf) {
		return nil, persistence.NewWorkflowError("StartRun", workflowID, ErrWorkflowNotFound)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	run, err := w.scheduler.Start(runCtx, wf)
	if err != nil {
		cancel()

		return nil, err
	}

	active := &activeRun{run: run, cancel: cancel, saved: make(chan struct{})}
	w.runs[workflowID] = active
	w.wg.Add(1)

	go w.await(runCtx, wf, active)

	return active, nil
}

func (w *Workflow) await(ctx context.Context, wf *engine.Workflow, active *activeRun) {
	defer w.wg.Done()
	defer close(active.saved)
	defer active.cancel()

	run := active.run
	<-run.Done()

	summary, _ := run.Summary()
	saveCtx := context.WithoutCancel(ctx)

	w.mu.Lock()
	delete(w.runs, wf.ID())
	w.last[wf.ID()] = summary

	if w.isLive(wf) {
		err := w.save(saveCtx, wf)
		if err != nil {
			w.logger.ErrorContext(saveCtx, "Failed to save workflow after run", "workflow_id", wf.ID(), "run_id", run.ID(), "error", err)
		}
	}
	w.mu.Unlock()

	w.logger.InfoContext(saveCtx, "Run finished", "workflow_id", wf.ID(), "run_id", run.ID(), "outcome", summary.Outcome)
}

// Run starts a run and waits until it ended and was saved. Cancelling ctx cancels the run.
func (w *Workflow) Run(ctx context.Context, workflowID string) (models.RunSummary, error) {
	active, err := w.startRun(ctx, workflowID)
	if err != nil {
		return models.RunSummary{}, err
	}

	select {
	case <-active.saved:
	case <-ctx.Done():
		active.run.Cancel()
		<-active.saved
	}

	summary, _ := active.run.Summary()

	return summary, nil
}

func (w *Workflow) active(workflowID string) (*engine.Run, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	active, ok := w.runs[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNoActiveRun)
	}

	return active.run, nil
}

// CancelRun stops dispatching new nodes of the active run; nodes in flight end cancelled.
func (w *Workflow) CancelRun(_ context.Context, workflowID string) error {
	run, err := w.active(workflowID)
	if err != nil {
		return err
	}

	run.Cancel()

	return nil
}

// PauseRun holds new dispatches of the active run.
func (w *Workflow) PauseRun(_ context.Context, workflowID string) error {
	run, err := w.active(workflowID)
	if err != nil {
		return err
	}

	run.Pause()

	return nil
}

// ResumeRun releases a paused run.
func (w *Workflow) ResumeRun(_ context.Context, workflowID string) error {
	run, err := w.active(workflowID)
	if err != nil {
		return err
	}

	run.Resume()

	return nil
}

// RunStatus reports the active run of a workflow, or the summary of its last run.
func (w *Workflow) RunStatus(ctx context.Context, workflowID string) (RunStatus, error) {
	if _, err := w.aggregate(ctx, workflowID); err != nil {
		return RunStatus{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	status := RunStatus{WorkflowID: workflowID}

	if active, ok := w.runs[workflowID]; ok {
		status.RunID = active.run.ID()
		status.Active = true
		status.Paused = active.run.Paused()

		return status, nil
	}

	if summary, ok := w.last[workflowID]; ok {
		status.RunID = summary.RunID
		status.Summary = &summary
	}

	return status, nil
}

// Shutdown cancels every active run and waits until they are saved or ctx ends.
func (w *Workflow) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	for _, active := range w.runs {
		active.run.Cancel()
	}
	w.mu.Unlock()

	done := make(chan struct{})

	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs to finish: %w", ctx.Err())
	}
}
