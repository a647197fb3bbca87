package engine

import (
	"context"
	"sync"

	"github.com/ryxhub/flowengine/pkg/models"
)

// Run is the handle of one in-flight scheduler pass.
type Run struct {
	id string
	wf *Workflow

	mu        sync.Mutex
	cancelled bool
	paused    bool
	wake      chan struct{}

	done    chan struct{}
	summary models.RunSummary
}

func newRun(id string, wf *Workflow) *Run {
	return &Run{
		id:   id,
		wf:   wf,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) WorkflowID() string {
	return r.wf.id
}

// Cancel stops scheduling new nodes. Nodes already running finish their work and end as
// cancelled; nodes never started stay idle. Cancelling a finished run is a no-op.
func (r *Run) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.signal()
}

// Pause holds back new dispatches until Resume; running nodes are not affected.
func (r *Run) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
	r.signal()
}

func (r *Run) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
	r.signal()
}

// Paused reports whether dispatching is currently held back.
func (r *Run) Paused() bool {
	_, paused := r.state()

	return paused
}

func (r *Run) state() (cancelled, paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cancelled, r.paused
}

func (r *Run) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the run has ended and the workflow is no longer running.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends or ctx is done.
func (r *Run) Wait(ctx context.Context) (models.RunSummary, error) {
	select {
	case <-r.done:
		return r.summary, nil
	case <-ctx.Done():
		return models.RunSummary{}, ctx.Err()
	}
}

// Summary returns the run's summary once it has ended.
func (r *Run) Summary() (models.RunSummary, bool) {
	select {
	case <-r.done:
		return r.summary, true
	default:
		return models.RunSummary{}, false
	}
}

func (r *Run) finish(summary models.RunSummary) {
	r.summary = summary
	close(r.done)
}
