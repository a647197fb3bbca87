package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/persistence"
)

// Workflow is the application service in front of the engine. It keeps one live aggregate per
// workflow, so statuses and run controls survive between requests, and writes the document
// back to persistence after every mutation and every finished run.
type Workflow struct {
	persistence persistence.Persistence
	scheduler   *engine.Scheduler
	publisher   engine.Publisher
	logger      *slog.Logger

	mu   sync.Mutex
	live map[string]*engine.Workflow
	runs map[string]*activeRun
	last map[string]models.RunSummary
	wg   sync.WaitGroup
}

type activeRun struct {
	run    *engine.Run
	cancel context.CancelFunc
	saved  chan struct{}
}

// Option configures the workflow service.
type Option func(*Workflow)

// WithPublisher sets where engine events of loaded workflows go.
func WithPublisher(publisher engine.Publisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, scheduler *engine.Scheduler, opts ...Option) *Workflow {
	w := &Workflow{
		persistence: persistence,
		scheduler:   scheduler,
		logger:      slog.Default(),
		live:        make(map[string]*engine.Workflow),
		runs:        make(map[string]*activeRun),
		last:        make(map[string]models.RunSummary),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.With("module", "workflow_service")

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (w *Workflow) engineOptions() []engine.Option {
	opts := []engine.Option{engine.WithLogger(w.logger)}
	if w.publisher != nil {
		opts = append(opts, engine.WithPublisher(w.publisher))
	}

	return opts
}

// aggregate returns the live aggregate of a workflow, loading it from persistence on first use.
func (w *Workflow) aggregate(ctx context.Context, id string) (*engine.Workflow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if wf, ok := w.live[id]; ok {
		return wf, nil
	}

	doc, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wf, err := engine.Load(doc, w.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	w.live[id] = wf

	return wf, nil
}

func (w *Workflow) save(ctx context.Context, wf *engine.Workflow) error {
	err := w.persistence.SaveWorkflow(ctx, wf.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", wf.ID(), err)
	}

	return nil
}

// List returns every stored workflow. Workflows with a live aggregate are reported from memory
// so in-flight statuses are visible.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	stored, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for i, doc := range stored {
		if wf, ok := w.live[doc.ID]; ok {
			stored[i] = wf.Snapshot()
		}
	}

	return stored, nil
}

// FetchByID returns the current document of a workflow.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := w.aggregate(ctx, id)
	if err != nil {
		return nil, err
	}

	return wf.Snapshot(), nil
}

// Create stores a new workflow. A missing id is generated. Unlike engine.Load, creation rejects
// a cyclic connection set.
func (w *Workflow) Create(ctx context.Context, doc *models.Workflow) (*models.Workflow, error) {
	if doc == nil {
		return nil, ErrWorkflowNil
	}

	if strings.TrimSpace(doc.Name) == "" {
		return nil, NewValidationError("Create", "name_required", "workflow name is required", ErrWorkflowNameRequired)
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	wf, err := engine.Load(doc, w.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	if _, err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("create workflow %s: %w", doc.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.live[wf.ID()]; ok {
		return nil, fmt.Errorf("create workflow %s: %w", wf.ID(), ErrWorkflowExists)
	}

	_, err = w.persistence.WorkflowByID(ctx, wf.ID())
	if err == nil {
		return nil, fmt.Errorf("create workflow %s: %w", wf.ID(), ErrWorkflowExists)
	}

	if !persistence.IsWorkflowNotFound(err) {
		return nil, fmt.Errorf("failed to check workflow %s: %w", wf.ID(), err)
	}

	err = w.save(ctx, wf)
	if err != nil {
		return nil, err
	}

	w.live[wf.ID()] = wf

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", wf.ID(), "nodes", len(doc.Nodes))

	return wf.Snapshot(), nil
}

// UpdateWorkflowRequest changes workflow-level attributes. Nil fields keep their value.
type UpdateWorkflowRequest struct {
	Name        *string
	Description *string
	Schedule    *string
	Variables   map[string]any
}

// Update changes name, description, schedule or variables of a workflow.
func (w *Workflow) Update(ctx context.Context, id string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	wf, err := w.mutate(ctx, id, func(wf *engine.Workflow) error {
		current := wf.Snapshot()

		name := current.Name
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return NewValidationError("Update", "name_required", "workflow name is required", ErrWorkflowNameRequired)
			}

			name = *req.Name
		}

		description := current.Description
		if req.Description != nil {
			description = *req.Description
		}

		schedule := current.Schedule
		if req.Schedule != nil {
			schedule = *req.Schedule
		}

		return wf.UpdateDetails(name, description, schedule, req.Variables)
	})
	if err != nil {
		return nil, err
	}

	return wf.Snapshot(), nil
}

// Delete removes a workflow. A workflow with a run in flight cannot be deleted.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, running := w.runs[id]; running {
		return fmt.Errorf("delete workflow %s: %w", id, engine.ErrWorkflowBusy)
	}

	err := w.persistence.DeleteWorkflow(ctx, id)
	if err != nil {
		return err
	}

	delete(w.live, id)
	delete(w.last, id)

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)

	return nil
}

// Scheduled returns the ids and cron expressions of every workflow that carries a schedule.
func (w *Workflow) Scheduled(ctx context.Context) (map[string]string, error) {
	workflows, err := w.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)

	for _, doc := range workflows {
		if doc.Schedule != "" {
			out[doc.ID] = doc.Schedule
		}
	}

	return out, nil
}

// mutate applies fn to the live aggregate and persists the result when fn succeeds. A workflow
// deleted meanwhile is reported as not found and never written back.
func (w *Workflow) mutate(ctx context.Context, id string, fn func(*engine.Workflow) error) (*engine.Workflow, error) {
	wf, err := w.aggregate(ctx, id)
	if err != nil {
		return nil, err
	}

	err = fn(wf)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isLive(wf) {
		return nil, persistence.NewWorkflowError("SaveWorkflow", id, ErrWorkflowNotFound)
	}

	err = w.save(ctx, wf)
	if err != nil {
		return nil, err
	}

	return wf, nil
}

// isLive reports whether wf is still the live aggregate of its workflow. w.mu must be held.
func (w *Workflow) isLive(wf *engine.Workflow) bool {
	return w.live[wf.ID()] == wf
}
