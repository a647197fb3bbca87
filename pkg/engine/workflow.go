package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ryxhub/flowengine/pkg/events"
	"github.com/ryxhub/flowengine/pkg/models"
)

// Publisher receives the events a workflow emits. eventbus.EventBus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event events.Event) error
}

// Workflow is the aggregate owning a graph's nodes, connections, run history and run flag.
// Every mutation goes through its methods; it is safe for concurrent use.
type Workflow struct {
	mu sync.RWMutex

	id          string
	name        string
	description string
	schedule    string
	variables   map[string]any
	createdAt   time.Time
	updatedAt   time.Time

	nodes       []*node // creation order
	byID        map[string]*node
	connections []*models.Connection
	ledger      *Ledger
	seq         int

	running bool
	runID   string

	logger    *slog.Logger
	publisher Publisher
	now       func() time.Time

	outboxMu sync.Mutex
	outbox   []events.Event
	pubMu    sync.Mutex
}

type node struct {
	id        string
	typ       models.NodeType
	name      string
	status    models.NodeStatus
	config    map[string]any
	logs      []string
	createdAt time.Time
	seq       int

	startedAt time.Time
}

type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// New creates an empty workflow.
func New(id, name string, opts ...Option) *Workflow {
	if id == "" {
		id = uuid.NewString()
	}

	w := &Workflow{
		id:        id,
		name:      name,
		variables: map[string]any{},
		byID:      make(map[string]*node),
		ledger:    newLedger(),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.With("module", "engine", "workflow_id", w.id)
	w.createdAt = w.now()
	w.updatedAt = w.createdAt

	return w
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load rebuilds an aggregate from a stored document. Connections are inserted without the
// cycle guard of AddConnection: documents may have been edited by hand, and the scheduler
// re-validates the graph before every run.
func Load(doc *models.Workflow, opts ...Option) (*Workflow, error) {
	if doc == nil {
		return nil, fmt.Errorf("load workflow: %w", ErrInvalidNode)
	}

	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("load workflow %s: %w: %w", doc.ID, ErrInvalidNode, err)
	}

	w := New(doc.ID, doc.Name, opts...)
	w.description = doc.Description
	w.schedule = doc.Schedule
	w.variables = cloneConfig(doc.Variables)

	if !doc.CreatedAt.IsZero() {
		w.createdAt = doc.CreatedAt
	}

	if !doc.UpdatedAt.IsZero() {
		w.updatedAt = doc.UpdatedAt
	}

	for _, n := range doc.Nodes {
		if _, exists := w.byID[n.ID]; exists {
			return nil, &NodeError{Op: "Load", NodeID: n.ID, Err: ErrDuplicateID}
		}

		created := n.CreatedAt
		if created.IsZero() {
			created = w.now()
		}

		status := n.Status
		// A document saved mid-run cannot resume that run.
		if status == "" || status == models.NodeStatusRunning {
			status = models.NodeStatusIdle
		}

		w.insertNode(&node{
			id:        n.ID,
			typ:       n.Type,
			name:      n.Name,
			status:    status,
			config:    cloneConfig(n.Config),
			logs:      append([]string(nil), n.Logs...),
			createdAt: created,
		})
		w.ledger.restore(n.ID, n.Runs)
	}

	seen := make(map[string]struct{}, len(doc.Connections))

	for _, c := range doc.Connections {
		if _, dup := seen[c.ID]; dup {
			return nil, &ConnectionError{Op: "Load", ConnectionID: c.ID, Err: ErrDuplicateID}
		}

		seen[c.ID] = struct{}{}

		if err := w.checkEndpoints("Load", c.From, c.To); err != nil {
			return nil, err
		}

		w.connections = append(w.connections, &models.Connection{ID: c.ID, From: c.From, To: c.To})
	}

	return w, nil
}

func (w *Workflow) ID() string {
	return w.id
}

func (w *Workflow) Name() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.name
}

// Schedule returns the cron expression attached to the workflow, if any.
func (w *Workflow) Schedule() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.schedule
}

// Variables returns a copy of the workflow-level variables handed to node work.
func (w *Workflow) Variables() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return cloneConfig(w.variables)
}

// IsRunning reports whether a scheduler pass is in flight.
func (w *Workflow) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.running
}

// Snapshot returns the document form of the workflow, including logs and run history.
func (w *Workflow) Snapshot() *models.Workflow {
	w.mu.RLock()
	defer w.mu.RUnlock()

	doc := &models.Workflow{
		ID:          w.id,
		Name:        w.name,
		Description: w.description,
		Schedule:    w.schedule,
		Nodes:       make([]*models.WorkflowNode, 0, len(w.nodes)),
		Connections: make([]*models.Connection, 0, len(w.connections)),
		Variables:   cloneConfig(w.variables),
		CreatedAt:   w.createdAt,
		UpdatedAt:   w.updatedAt,
	}

	for _, n := range w.nodes {
		doc.Nodes = append(doc.Nodes, w.view(n))
	}

	for _, c := range w.connections {
		cc := *c
		doc.Connections = append(doc.Connections, &cc)
	}

	return doc
}

// UpdateDetails changes the workflow-level attributes that carry no graph semantics.
func (w *Workflow) UpdateDetails(name, description, schedule string, variables map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("update workflow %s: %w", w.id, ErrWorkflowBusy)
	}

	w.name = name
	w.description = description
	w.schedule = schedule

	if variables != nil {
		w.variables = cloneConfig(variables)
	}

	w.touch()

	return nil
}

func (w *Workflow) touch() {
	w.updatedAt = w.now()
}

// beginRun freezes the graph for a run.
func (w *Workflow) beginRun(runID string) error {
	if w.running {
		return fmt.Errorf("start run on workflow %s: %w", w.id, ErrWorkflowBusy)
	}

	w.running = true
	w.runID = runID

	return nil
}

func (w *Workflow) endRun() {
	w.mu.Lock()
	w.running = false
	w.runID = ""
	w.touch()
	w.mu.Unlock()
}

// emit queues an event; flush publishes queued events outside of the aggregate lock.
func (w *Workflow) emit(event events.Event) {
	if w.publisher == nil {
		return
	}

	w.outboxMu.Lock()
	w.outbox = append(w.outbox, event)
	w.outboxMu.Unlock()
}

func (w *Workflow) flush(ctx context.Context) {
	if w.publisher == nil {
		return
	}

	w.pubMu.Lock()
	defer w.pubMu.Unlock()

	w.outboxMu.Lock()
	pending := w.outbox
	w.outbox = nil
	w.outboxMu.Unlock()

	for _, event := range pending {
		if err := w.publisher.Publish(ctx, w.id, event); err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
		}
	}
}

func (w *Workflow) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  w.now(),
		WorkflowID: w.id,
		RunID:      runID,
	}
}

// cloneConfig deep-copies the nested maps and slices JSON-like configs are made of.
func cloneConfig(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}

	return dst
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneConfig(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}

		return out
	case map[string]string:
		return maps.Clone(tv)
	case []string:
		return append([]string(nil), tv...)
	default:
		return v
	}
}
